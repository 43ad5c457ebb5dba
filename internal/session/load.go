package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/scanlab/internal/engine/align"
	"github.com/Faultbox/scanlab/internal/engine/diff"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/pkg/formats"
)

// File is a mesh buffer with the role the caller assigns to it.
// The name only selects the format; it never decides the role.
type File struct {
	Name string
	Role registry.Role
	Data []byte
}

// ReadFile reads a mesh from disk.
func ReadFile(path string, role registry.Role) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Role: role, Data: data}, nil
}

// Task is an in-flight parse.
type Task struct {
	file    File
	done    chan struct{}
	mesh    *formats.Mesh
	err     error
	elapsed time.Duration
}

// ParseAsync parses f on a new goroutine.
func ParseAsync(f File) *Task {
	t := newTask(f)
	go t.run()
	return t
}

func newTask(f File) *Task {
	return &Task{file: f, done: make(chan struct{})}
}

func (t *Task) run() {
	defer close(t.done)
	start := time.Now()
	t.mesh, t.err = formats.Parse(t.file.Name, t.file.Data)
	t.elapsed = time.Since(start)
}

// File returns the file being parsed.
func (t *Task) File() File {
	return t.file
}

// Done is closed when parsing finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until parsing finishes or ctx is done. Cancelling ctx stops
// the wait only; the parse itself runs to completion.
func (t *Task) Wait(ctx context.Context) (*formats.Mesh, error) {
	select {
	case <-t.done:
		return t.mesh, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Load parses f off the calling goroutine and commits the result. On a
// parse error the registry is unchanged and the session stays usable.
func (s *Session) Load(ctx context.Context, f File) error {
	if f.Role == "" {
		return fmt.Errorf("%w: %s", ErrNoRole, f.Name)
	}

	ctx, cancel := s.loadContext(ctx)
	defer cancel()

	t := ParseAsync(f)
	if _, err := t.Wait(ctx); err != nil && ctx.Err() != nil {
		return fmt.Errorf("loading %s: %w", f.Name, err)
	}
	return s.commit(ctx, t)
}

// LoadAll parses files concurrently, bounded by Loading.Workers, and
// commits each result as it completes. Completion order is not submission
// order; a later file with the same role as an earlier one wins only if it
// finishes last. Failures are joined; successful files are still committed.
func (s *Session) LoadAll(ctx context.Context, files []File) error {
	ctx, cancel := s.loadContext(ctx)
	defer cancel()

	var errs []error
	var pending []File
	for _, f := range files {
		if f.Role == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoRole, f.Name))
			continue
		}
		pending = append(pending, f)
	}

	results := make(chan *Task)
	var g errgroup.Group
	g.SetLimit(s.cfg.Loading.Workers)

	go func() {
		for _, f := range pending {
			g.Go(func() error {
				t := newTask(f)
				t.run()
				select {
				case results <- t:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}
		g.Wait()
		close(results)
	}()

	for t := range results {
		if err := s.commit(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Session) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := s.cfg.Loading.Timeout; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// commit applies a finished parse to the registry.
func (s *Session) commit(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := t.file
	ev := &LoadEvent{
		Name:  f.Name,
		Role:  f.Role,
		Bytes: len(f.Data),
		Parse: t.elapsed,
		Err:   t.err,
	}

	if t.err != nil {
		s.log.Warn("mesh load failed",
			zap.String("file", f.Name),
			zap.String("role", string(f.Role)),
			zap.Error(t.err))
		s.hooks.load(ctx, ev)
		return fmt.Errorf("loading %s as %s: %w", f.Name, f.Role, t.err)
	}

	// Replacing one of the pair invalidates the current alignment.
	if s.align.Aligned() && (f.Role == registry.RoleReference || f.Role == registry.RoleScan) {
		s.leaveCalibration(ctx)
	}

	a := registry.NewAsset(f.Role, f.Name, t.mesh, s.cfg.Colors.Base)
	ev.Format = a.Format
	ev.Vertices = a.VertexCount()
	ev.Replaced = s.reg.Upsert(a) != nil

	if reference, scan, ok := s.reg.Pair(); ok {
		align.PlacePair(reference, scan, s.align.Presets())
	}

	s.log.Info("mesh loaded",
		zap.String("file", f.Name),
		zap.String("role", string(f.Role)),
		zap.Stringer("format", a.Format),
		zap.Int("vertices", a.VertexCount()),
		zap.Bool("replaced", ev.Replaced),
		zap.Duration("parse", t.elapsed))
	s.hooks.load(ctx, ev)
	return nil
}

// leaveCalibration returns to Idle and forces the comparison hidden.
// Callers hold s.mu.
func (s *Session) leaveCalibration(ctx context.Context) {
	from := s.align.State()
	s.align.Reset()
	s.emit(ctx, MachineAlignment, from.String(), s.align.State().String(), nil)
	s.hideComparison(ctx)
}

// hideComparison forces Hidden. Already hidden assets keep their colors.
func (s *Session) hideComparison(ctx context.Context) {
	if s.diff.Visibility() == diff.Hidden {
		return
	}
	from := s.diff.Visibility()
	s.diff.Hide(s.reg)
	s.emit(ctx, MachineComparison, from.String(), diff.Hidden.String(), nil)
}
