// Package diff colors the reference and scan to show how they differ.
package diff

import (
	"fmt"

	"github.com/Faultbox/scanlab/internal/engine"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/pkg/colors"
)

// Visibility is the comparison state.
type Visibility int

const (
	Hidden Visibility = iota
	Shown
)

func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case Shown:
		return "shown"
	default:
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
}

// Strategy recolors an aligned reference and scan.
type Strategy interface {
	Name() string
	Colorize(reference, scan *registry.Asset) (*Report, error)
}

// Report summarizes a colorization.
type Report struct {
	Strategy  string
	Reference Stats // Distances from reference vertices to the scan
	Scan      Stats // Distances from scan vertices to the reference
}

// Engine applies comparison coloring and tracks its visibility.
// It is not safe for concurrent use.
type Engine struct {
	strategy Strategy
	base     colors.Color
	vis      Visibility
	last     *Report
}

// New creates a hidden engine. A nil strategy falls back to UniformTint
// with the default colors.
func New(s Strategy, base colors.Color) *Engine {
	if s == nil {
		s = NewUniformTint(colors.Highlight, colors.Neutral)
	}
	return &Engine{strategy: s, base: base}
}

// Visibility returns the current comparison state.
func (e *Engine) Visibility() Visibility {
	return e.vis
}

// Strategy returns the coloring strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Last returns the report of the most recent Shown coloring.
func (e *Engine) Last() (*Report, bool) {
	return e.last, e.last != nil
}

// Apply colors the registry for vis.
//
// Hidden resets every vertex of every asset to the base color. Shown needs
// aligned meshes and both roles present; otherwise it returns
// engine.ErrInvalidTransition without touching the registry.
func (e *Engine) Apply(reg *registry.Registry, vis Visibility, aligned bool) (*Report, error) {
	if vis == Hidden {
		for _, a := range reg.Assets() {
			a.Fill(e.base)
		}
		e.vis = Hidden
		e.last = nil
		return nil, nil
	}

	if !aligned {
		return nil, fmt.Errorf("%w: comparison needs aligned meshes", engine.ErrInvalidTransition)
	}
	reference, scan, ok := reg.Pair()
	if !ok {
		return nil, fmt.Errorf("%w: comparison needs %s and %s", engine.ErrInvalidTransition, registry.RoleReference, registry.RoleScan)
	}

	report, err := e.strategy.Colorize(reference, scan)
	if err != nil {
		return nil, fmt.Errorf("%s colorize failed: %w", e.strategy.Name(), err)
	}
	e.vis = Shown
	e.last = report
	return report, nil
}

// Toggle flips the visibility.
func (e *Engine) Toggle(reg *registry.Registry, aligned bool) (Visibility, *Report, error) {
	next := Shown
	if e.vis == Shown {
		next = Hidden
	}
	report, err := e.Apply(reg, next, aligned)
	return e.vis, report, err
}

// Hide forces Hidden.
func (e *Engine) Hide(reg *registry.Registry) {
	e.Apply(reg, Hidden, false)
}

// UniformTint paints the whole scan with one color and the whole reference
// with another.
type UniformTint struct {
	Highlight colors.Color
	Neutral   colors.Color
}

// NewUniformTint creates a UniformTint strategy.
func NewUniformTint(highlight, neutral colors.Color) *UniformTint {
	return &UniformTint{Highlight: highlight, Neutral: neutral}
}

func (u *UniformTint) Name() string { return "uniform" }

// Colorize fills the scan with Highlight and the reference with Neutral.
func (u *UniformTint) Colorize(reference, scan *registry.Asset) (*Report, error) {
	scan.Fill(u.Highlight)
	reference.Fill(u.Neutral)
	return &Report{
		Strategy:  u.Name(),
		Reference: Stats{Count: reference.VertexCount()},
		Scan:      Stats{Count: scan.VertexCount()},
	}, nil
}
