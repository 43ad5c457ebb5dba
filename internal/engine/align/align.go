// Package align places the reference and scan meshes and runs the
// calibration toggle between side-by-side and overlaid views.
package align

import (
	"fmt"

	"github.com/Faultbox/scanlab/internal/engine"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/pkg/math"
)

// State is the alignment state.
type State int

const (
	// Idle shows the meshes side by side at their presets (unaligned).
	Idle State = iota
	// Calibrating shows the scan fitted onto the reference (aligned).
	Calibrating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Calibrating:
		return "calibrating"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Presets are the side-by-side positions used while unaligned.
type Presets struct {
	Reference math.Vec3
	Scan      math.Vec3
}

// DefaultPresets places the meshes 400 units apart along X.
func DefaultPresets() Presets {
	return Presets{
		Reference: math.Vec3{X: -200},
		Scan:      math.Vec3{X: 200},
	}
}

// PlacePair moves both assets to their presets with zero rotation.
func PlacePair(reference, scan *registry.Asset, p Presets) {
	if reference != nil {
		reference.Transform = math.At(p.Reference)
	}
	if scan != nil {
		scan.Transform = math.At(p.Scan)
	}
}

// Controller owns the alignment state. It is not safe for concurrent use.
type Controller struct {
	strategy Strategy
	presets  Presets
	state    State
	last     *Result
}

// NewController creates an idle controller. A nil strategy falls back to a
// FixedOffsetStrategy with the default angle.
func NewController(s Strategy, p Presets) *Controller {
	if s == nil {
		s = NewFixedOffsetStrategy(DefaultAngle)
	}
	return &Controller{strategy: s, presets: p}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Aligned reports whether the controller is calibrating.
func (c *Controller) Aligned() bool {
	return c.state == Calibrating
}

// Presets returns the side-by-side positions.
func (c *Controller) Presets() Presets {
	return c.presets
}

// Strategy returns the fitting strategy.
func (c *Controller) Strategy() Strategy {
	return c.strategy
}

// Last returns the result of the most recent fit.
func (c *Controller) Last() (Result, bool) {
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Toggle switches between Idle and Calibrating. Entering Calibrating needs
// both a reference and a scan; otherwise engine.ErrInvalidTransition is
// returned and nothing changes. A failed fit also leaves everything as is.
func (c *Controller) Toggle(reg *registry.Registry) (State, error) {
	reference, scan, ok := reg.Pair()

	if c.state == Calibrating {
		PlacePair(reference, scan, c.presets)
		c.state = Idle
		return c.state, nil
	}

	if !ok {
		return c.state, fmt.Errorf("%w: calibration needs %s and %s", engine.ErrInvalidTransition, registry.RoleReference, registry.RoleScan)
	}

	res, err := c.strategy.Fit(reference, scan)
	if err != nil {
		return c.state, fmt.Errorf("%s fit failed: %w", c.strategy.Name(), err)
	}
	scan.Transform = res.Transform
	c.last = &res
	c.state = Calibrating
	return c.state, nil
}

// Reset returns to Idle without touching any asset.
func (c *Controller) Reset() {
	c.state = Idle
	c.last = nil
}
