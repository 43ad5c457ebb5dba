// Package session ties the mesh engine together. A Session owns the asset
// registry and every state machine, and serializes all mutations behind one
// mutex. Parsing runs on worker goroutines; results are committed back
// through the session.
package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/scanlab/internal/assets"
	"github.com/Faultbox/scanlab/internal/config"
	"github.com/Faultbox/scanlab/internal/engine/align"
	"github.com/Faultbox/scanlab/internal/engine/classify"
	"github.com/Faultbox/scanlab/internal/engine/diff"
	"github.com/Faultbox/scanlab/internal/engine/extract"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/internal/logger"
	"github.com/Faultbox/scanlab/pkg/math"
)

// Session errors
var (
	ErrNoRole      = errors.New("file has no role")
	ErrUnknownRole = errors.New("no asset with role")
)

// Session is the engine's single mutation owner.
type Session struct {
	mu sync.Mutex

	cfg   *config.Config
	log   *zap.Logger
	hooks Hooks

	reg     *registry.Registry
	align   *align.Controller
	diff    *diff.Engine
	extract *extract.Manager

	single classify.RuleSet
	dual   classify.RuleSet

	// Set by options, consumed by New
	alignStrategy  align.Strategy
	diffStrategy   diff.Strategy
	resourceLoader extract.Loader
	rulesSet       bool
}

// Option defines a functional option for configuring the Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithHooks registers observability hooks.
func WithHooks(h Hooks) Option {
	return func(s *Session) {
		s.hooks = h
	}
}

// WithAlignmentStrategy overrides the strategy chosen by the config.
func WithAlignmentStrategy(st align.Strategy) Option {
	return func(s *Session) {
		s.alignStrategy = st
	}
}

// WithDifferenceStrategy overrides the strategy chosen by the config.
func WithDifferenceStrategy(st diff.Strategy) Option {
	return func(s *Session) {
		s.diffStrategy = st
	}
}

// WithResourceLoader replaces the asset manager used for extraction.
func WithResourceLoader(l extract.Loader) Option {
	return func(s *Session) {
		s.resourceLoader = l
	}
}

// WithRuleSets replaces the single- and dual-mesh classification rules.
func WithRuleSets(single, dual classify.RuleSet) Option {
	return func(s *Session) {
		s.single, s.dual = single, dual
		s.rulesSet = true
	}
}

// New creates an empty session. A nil config uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg, reg: registry.New()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log).Named("session")

	if s.alignStrategy == nil {
		s.alignStrategy = alignmentFromConfig(cfg)
	}
	if s.diffStrategy == nil {
		s.diffStrategy = differenceFromConfig(cfg)
	}
	if s.resourceLoader == nil {
		m := assets.NewDefaultManager()
		if dir := cfg.Extraction.OverrideDir; dir != "" {
			if err := m.MountDir(dir); err != nil {
				return nil, fmt.Errorf("extraction override: %w", err)
			}
		}
		s.resourceLoader = m
	}
	if !s.rulesSet {
		var err error
		if s.single, err = ruleSetFromConfig(cfg.Classification.SingleMesh, classify.SingleMesh()); err != nil {
			return nil, err
		}
		if s.dual, err = ruleSetFromConfig(cfg.Classification.DualMesh, classify.DualMesh()); err != nil {
			return nil, err
		}
	}
	for _, rs := range []classify.RuleSet{s.single, s.dual} {
		if err := rs.Validate(); err != nil {
			return nil, err
		}
	}

	s.align = align.NewController(s.alignStrategy, presetsFromConfig(cfg))
	s.diff = diff.New(s.diffStrategy, cfg.Colors.Base)
	s.extract = extract.New(s.resourceLoader, cfg.Extraction.Resource, cfg.Colors.Extraction)

	s.log.Debug("session created",
		zap.String("alignment", s.alignStrategy.Name()),
		zap.String("difference", s.diffStrategy.Name()),
		zap.String("single_rules", s.single.Name),
		zap.String("dual_rules", s.dual.Name),
		zap.Int("workers", cfg.Loading.Workers))

	return s, nil
}

func presetsFromConfig(cfg *config.Config) align.Presets {
	return align.Presets{
		Reference: math.Vec3FromArray(cfg.Engine.ReferencePreset),
		Scan:      math.Vec3FromArray(cfg.Engine.ScanPreset),
	}
}

func alignmentFromConfig(cfg *config.Config) align.Strategy {
	ac := cfg.Engine.Alignment
	if ac.Strategy == config.AlignICP {
		return &align.ICPStrategy{
			MaxIterations: ac.MaxIterations,
			Tolerance:     ac.Tolerance,
			SampleSize:    ac.SampleSize,
			Thresholds: align.Thresholds{
				Excellent: ac.Quality.Excellent,
				Good:      ac.Quality.Good,
				Fair:      ac.Quality.Fair,
			},
		}
	}
	return align.NewFixedOffsetStrategy(ac.CalibrationAngle)
}

func differenceFromConfig(cfg *config.Config) diff.Strategy {
	dc := cfg.Engine.Difference
	if dc.Strategy == config.DiffDeviation {
		bands := make([]diff.Band, len(dc.Bands))
		for i, b := range dc.Bands {
			bands[i] = diff.Band{Max: b.Max, Color: b.Color}
		}
		return diff.NewDeviationStrategy(bands, dc.Beyond)
	}
	return diff.NewUniformTint(cfg.Colors.Highlight, cfg.Colors.Neutral)
}

func ruleSetFromConfig(path string, builtin classify.RuleSet) (classify.RuleSet, error) {
	if path == "" {
		return builtin, nil
	}
	rs, err := classify.LoadRuleSet(path)
	if err != nil {
		return classify.RuleSet{}, fmt.Errorf("%s rules: %w", builtin.Name, err)
	}
	return rs, nil
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// RuleSets returns the single- and dual-mesh rule sets in use.
func (s *Session) RuleSets() (single, dual classify.RuleSet) {
	return s.single, s.dual
}

// AlignmentState returns the alignment state.
func (s *Session) AlignmentState() align.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.align.State()
}

// ComparisonState returns the comparison visibility.
func (s *Session) ComparisonState() diff.Visibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diff.Visibility()
}

// ExtractionState returns the extraction state.
func (s *Session) ExtractionState() extract.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extract.State()
}

// LastAlignment returns the most recent fit result.
func (s *Session) LastAlignment() (align.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.align.Last()
}

// LastDifference returns the report of the comparison currently shown.
func (s *Session) LastDifference() (diff.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.diff.Last()
	if !ok {
		return diff.Report{}, false
	}
	return *r, true
}

// Roles returns the loaded roles in insertion order.
func (s *Session) Roles() []registry.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Roles()
}

// Len returns the number of loaded assets.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Len()
}
