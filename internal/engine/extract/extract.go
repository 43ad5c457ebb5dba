// Package extract overlays an auxiliary reference mesh loaded from a fixed
// resource when a single mesh is on display.
package extract

import (
	"fmt"

	"github.com/Faultbox/scanlab/internal/engine"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/formats"
)

// DefaultResource is the resource name of the auxiliary reference.
const DefaultResource = "extracted_reference.stl"

// State is the extraction state.
type State int

const (
	Retracted State = iota
	Extracted
)

func (s State) String() string {
	switch s {
	case Retracted:
		return "retracted"
	case Extracted:
		return "extracted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loader reads a named resource.
type Loader interface {
	Load(name string) ([]byte, error)
}

// Manager toggles the auxiliary reference. It is not safe for concurrent use.
type Manager struct {
	loader   Loader
	resource string
	color    colors.Color
	state    State
}

// New creates a retracted manager.
func New(loader Loader, resource string, color colors.Color) *Manager {
	if resource == "" {
		resource = DefaultResource
	}
	return &Manager{loader: loader, resource: resource, color: color}
}

// State returns the current state.
func (m *Manager) State() State {
	return m.state
}

// Resource returns the resource name.
func (m *Manager) Resource() string {
	return m.resource
}

// Toggle extracts or retracts the auxiliary reference.
//
// Extracting needs exactly one asset in the registry, none of them a scan;
// otherwise engine.ErrInvalidTransition is returned. A resource that cannot
// be loaded or parsed is returned as an error. In both cases nothing changes.
// Retracting is always permitted.
func (m *Manager) Toggle(reg *registry.Registry) (State, error) {
	if m.state == Extracted {
		reg.Remove(registry.RoleExtracted)
		m.state = Retracted
		return m.state, nil
	}

	if reg.Len() != 1 || reg.Has(registry.RoleScan) {
		return m.state, fmt.Errorf("%w: extraction needs exactly one non-scan mesh, have %d", engine.ErrInvalidTransition, reg.Len())
	}

	a, err := m.load()
	if err != nil {
		return m.state, err
	}
	reg.Upsert(a)
	m.state = Extracted
	return m.state, nil
}

func (m *Manager) load() (*registry.Asset, error) {
	data, err := m.loader.Load(m.resource)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", m.resource, err)
	}
	mesh, err := formats.Parse(m.resource, data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", m.resource, err)
	}
	return registry.NewAsset(registry.RoleExtracted, m.resource, mesh, m.color), nil
}

// Reset returns to Retracted without touching the registry.
func (m *Manager) Reset() {
	m.state = Retracted
}
