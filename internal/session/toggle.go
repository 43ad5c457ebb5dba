package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/scanlab/internal/engine"
	"github.com/Faultbox/scanlab/internal/engine/align"
	"github.com/Faultbox/scanlab/internal/engine/classify"
	"github.com/Faultbox/scanlab/internal/engine/diff"
	"github.com/Faultbox/scanlab/internal/engine/extract"
	"github.com/Faultbox/scanlab/internal/engine/registry"
)

// emit logs and reports a transition. Callers hold s.mu.
func (s *Session) emit(ctx context.Context, machine, from, to string, err error) {
	ev := &TransitionEvent{Machine: machine, From: from, To: to, Err: err}
	switch {
	case errors.Is(err, engine.ErrInvalidTransition):
		ev.Rejected = true
		s.log.Debug("toggle ignored", zap.String("machine", machine), zap.String("state", from), zap.Error(err))
	case err != nil:
		s.log.Warn("toggle failed", zap.String("machine", machine), zap.String("state", from), zap.Error(err))
	default:
		s.log.Info("state changed", zap.String("machine", machine), zap.String("from", from), zap.String("to", to))
	}
	s.hooks.transition(ctx, ev)
}

// settle turns a rejected transition into a silent no-op.
func settle(err error) error {
	if errors.Is(err, engine.ErrInvalidTransition) {
		return nil
	}
	return err
}

// ToggleCalibration switches between Idle and Calibrating. Without both a
// reference and a scan it does nothing. Leaving Calibrating restores the
// presets and hides the comparison.
func (s *Session) ToggleCalibration(ctx context.Context) (align.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.align.State()
	to, err := s.align.Toggle(s.reg)
	s.emit(ctx, MachineAlignment, from.String(), to.String(), err)
	if err != nil {
		return to, settle(err)
	}

	if to == align.Idle {
		s.hideComparison(ctx)
	} else if res, ok := s.align.Last(); ok {
		s.log.Info("alignment fitted",
			zap.String("strategy", res.Strategy),
			zap.Float64("rmse", res.RMSE),
			zap.String("quality", string(res.Quality)),
			zap.Int("iterations", res.Iterations))
	}
	return to, nil
}

// ToggleComparison shows or hides the comparison colors. It does nothing
// while unaligned.
func (s *Session) ToggleComparison(ctx context.Context) (diff.Visibility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.diff.Visibility()
	to, report, err := s.diff.Toggle(s.reg, s.align.Aligned())
	s.emit(ctx, MachineComparison, from.String(), to.String(), err)
	if err != nil {
		return to, settle(err)
	}

	if report != nil {
		s.log.Debug("comparison applied",
			zap.String("strategy", report.Strategy),
			zap.Float64("scan_rms", report.Scan.RMS),
			zap.Float64("scan_max", report.Scan.Max))
	}
	return to, nil
}

// ToggleExtraction shows or removes the auxiliary reference. Showing it
// needs exactly one non-scan asset; otherwise it does nothing.
func (s *Session) ToggleExtraction(ctx context.Context) (extract.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.extract.State()
	had := s.reg.Get(registry.RoleExtracted)
	to, err := s.extract.Toggle(s.reg)
	if had != nil && !s.reg.Has(registry.RoleExtracted) {
		s.hooks.remove(ctx, had)
	}
	s.emit(ctx, MachineExtraction, from.String(), to.String(), err)
	return to, settle(err)
}

// Classify recolors the asset with role using rs.
func (s *Session) Classify(role registry.Role, rs classify.RuleSet) error {
	if err := rs.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.reg.Get(role)
	if a == nil {
		return fmt.Errorf("%w %q", ErrUnknownRole, role)
	}
	if err := a.SetColors(classify.Classify(a.Vertices, rs)); err != nil {
		return err
	}
	s.log.Debug("classified", zap.String("role", string(role)), zap.String("rules", rs.Name), zap.Int("vertices", a.VertexCount()))
	return nil
}

// ClassifyAuto applies the single-mesh rules when one asset is loaded and
// the dual-mesh rules to every asset otherwise. It returns the rule set
// name, or "" for an empty session.
func (s *Session) ClassifyAuto() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := s.reg.Assets()
	var rs classify.RuleSet
	switch len(assets) {
	case 0:
		return "", nil
	case 1:
		rs = s.single
	default:
		rs = s.dual
	}

	for _, a := range assets {
		if err := a.SetColors(classify.Classify(a.Vertices, rs)); err != nil {
			return "", err
		}
	}
	s.log.Debug("classified", zap.String("rules", rs.Name), zap.Int("assets", len(assets)))
	return rs.Name, nil
}

// Reset discards every asset and returns all state machines to their
// initial states.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := s.reg.Assets()
	s.reg.Clear()
	for _, a := range assets {
		s.hooks.remove(context.Background(), a)
	}
	s.align.Reset()
	s.diff.Hide(s.reg)
	s.extract.Reset()
	s.log.Info("session reset", zap.Int("discarded", len(assets)))
}
