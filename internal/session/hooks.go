package session

import (
	"context"
	"time"

	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/pkg/formats"
)

// Machine names used in transition events.
const (
	MachineAlignment  = "alignment"
	MachineComparison = "comparison"
	MachineExtraction = "extraction"
)

// LoadEvent describes a finished load.
type LoadEvent struct {
	Name     string
	Role     registry.Role
	Format   formats.Format
	Bytes    int
	Vertices int
	Replaced bool          // An asset with the same role was replaced
	Parse    time.Duration // Time spent parsing
	Err      error
}

// TransitionEvent describes a toggle. Rejected is set when the
// precondition did not hold and nothing changed.
type TransitionEvent struct {
	Machine  string
	From     string
	To       string
	Rejected bool
	Err      error
}

// RemoveEvent describes an asset leaving the registry through Reset or
// extraction retract.
type RemoveEvent struct {
	Role     registry.Role
	Name     string
	Vertices int
}

// Hooks are observability callbacks. They run on the committing goroutine
// with the session lock held and must not call back into the session.
type Hooks struct {
	OnLoad       func(context.Context, *LoadEvent)
	OnLoadFailed func(context.Context, *LoadEvent)
	OnTransition func(context.Context, *TransitionEvent)
	OnRemove     func(context.Context, *RemoveEvent)
}

func (h Hooks) load(ctx context.Context, e *LoadEvent) {
	if e.Err != nil {
		if h.OnLoadFailed != nil {
			h.OnLoadFailed(ctx, e)
		}
		return
	}
	if h.OnLoad != nil {
		h.OnLoad(ctx, e)
	}
}

func (h Hooks) transition(ctx context.Context, e *TransitionEvent) {
	if h.OnTransition != nil {
		h.OnTransition(ctx, e)
	}
}

func (h Hooks) remove(ctx context.Context, a *registry.Asset) {
	if h.OnRemove != nil {
		h.OnRemove(ctx, &RemoveEvent{Role: a.Role, Name: a.Name, Vertices: a.VertexCount()})
	}
}

// Merge returns hooks calling h then other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnLoad:       chain(h.OnLoad, other.OnLoad),
		OnLoadFailed: chain(h.OnLoadFailed, other.OnLoadFailed),
		OnTransition: chain(h.OnTransition, other.OnTransition),
		OnRemove:     chain(h.OnRemove, other.OnRemove),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
