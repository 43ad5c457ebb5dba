package session

import (
	"time"

	"github.com/Faultbox/scanlab/internal/engine/align"
	"github.com/Faultbox/scanlab/internal/engine/diff"
	"github.com/Faultbox/scanlab/internal/engine/extract"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/formats"
	"github.com/Faultbox/scanlab/pkg/math"
)

// AssetView is a renderer-facing copy of one asset.
type AssetView struct {
	ID        string
	Role      registry.Role
	Name      string
	Format    formats.Format
	LoadedAt  time.Time
	Vertices  []math.Vec3
	Indices   []uint32
	Colors    []colors.Color
	Transform math.Transform
	Model     math.Mat4
}

// Bounds returns the model-space bounding box.
func (v AssetView) Bounds() math.Bounds {
	return math.BoundsOf(v.Vertices)
}

// Snapshot is a consistent copy of the session state. It shares no memory
// with the session and may be read from any goroutine.
type Snapshot struct {
	Alignment  align.State
	Comparison diff.Visibility
	Extraction extract.State
	Assets     []AssetView // Registry order
}

// Asset returns the view for role.
func (s Snapshot) Asset(role registry.Role) (AssetView, bool) {
	for _, a := range s.Assets {
		if a.Role == role {
			return a, true
		}
	}
	return AssetView{}, false
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Alignment:  s.align.State(),
		Comparison: s.diff.Visibility(),
		Extraction: s.extract.State(),
		Assets:     make([]AssetView, 0, s.reg.Len()),
	}
	for _, a := range s.reg.Assets() {
		snap.Assets = append(snap.Assets, viewOf(a))
	}
	return snap
}

// Asset returns a copy of the asset with role.
func (s *Session) Asset(role registry.Role) (AssetView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.reg.Get(role)
	if a == nil {
		return AssetView{}, false
	}
	return viewOf(a), true
}

func viewOf(a *registry.Asset) AssetView {
	return AssetView{
		ID:        a.ID,
		Role:      a.Role,
		Name:      a.Name,
		Format:    a.Format,
		LoadedAt:  a.LoadedAt,
		Vertices:  append([]math.Vec3(nil), a.Vertices...),
		Indices:   append([]uint32(nil), a.Indices...),
		Colors:    append([]colors.Color(nil), a.Colors...),
		Transform: a.Transform,
		Model:     a.Transform.Matrix(),
	}
}
