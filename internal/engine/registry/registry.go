// Package registry holds the loaded mesh assets keyed by role tag.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/formats"
	"github.com/Faultbox/scanlab/pkg/math"
)

// ErrColorCount is returned when a color buffer does not match the vertex
// count of an asset.
var ErrColorCount = errors.New("color count does not match vertex count")

// Role is a caller-assigned tag describing what a mesh is for.
type Role string

// Well-known roles.
const (
	RoleReference Role = "reference"
	RoleScan      Role = "scan"
	RoleExtracted Role = "extracted-reference"
)

// Asset is a loaded mesh with its display state.
type Asset struct {
	ID       string
	Role     Role
	Name     string // Source file name, informational only
	Format   formats.Format
	LoadedAt time.Time

	Vertices []math.Vec3 // Model space, file order
	Indices  []uint32    // Optional triangles

	// Colors is the display color per vertex; always len(Vertices).
	Colors []colors.Color
	// SourceColors holds colors read from the file, if any.
	SourceColors []colors.Color

	Transform math.Transform
}

// NewAsset wraps a parsed mesh. Every vertex starts with the base color.
func NewAsset(role Role, name string, m *formats.Mesh, base colors.Color) *Asset {
	return &Asset{
		ID:           uuid.New().String(),
		Role:         role,
		Name:         name,
		Format:       m.Format,
		LoadedAt:     time.Now(),
		Vertices:     m.Vertices,
		Indices:      m.Indices,
		Colors:       colors.Fill(len(m.Vertices), base),
		SourceColors: m.Colors,
	}
}

// VertexCount returns the number of vertices.
func (a *Asset) VertexCount() int {
	return len(a.Vertices)
}

// Fill recolors every vertex uniformly.
func (a *Asset) Fill(c colors.Color) {
	for i := range a.Colors {
		a.Colors[i] = c
	}
}

// SetColors replaces the display colors. cs must have one entry per vertex.
func (a *Asset) SetColors(cs []colors.Color) error {
	if len(cs) != len(a.Vertices) {
		return fmt.Errorf("%w: %s has %d vertices, got %d colors", ErrColorCount, a.Role, len(a.Vertices), len(cs))
	}
	a.Colors = cs
	return nil
}

// WorldVertices returns the vertices with the asset transform applied.
func (a *Asset) WorldVertices() []math.Vec3 {
	return a.Transform.ApplyAll(a.Vertices)
}

// Bounds returns the model-space bounding box.
func (a *Asset) Bounds() math.Bounds {
	return math.BoundsOf(a.Vertices)
}

// Registry maps roles to assets. At most one asset exists per role.
// A Registry is not safe for concurrent use; the session serializes access.
type Registry struct {
	assets map[Role]*Asset
	order  []Role
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		assets: make(map[Role]*Asset),
	}
}

// Upsert stores a under its role, replacing any prior asset with the same
// role. A replaced asset keeps its iteration slot. Returns the replaced
// asset, or nil.
func (r *Registry) Upsert(a *Asset) *Asset {
	prev, ok := r.assets[a.Role]
	if !ok {
		r.order = append(r.order, a.Role)
	}
	r.assets[a.Role] = a
	return prev
}

// Get returns the asset for role, or nil.
func (r *Registry) Get(role Role) *Asset {
	return r.assets[role]
}

// Has reports whether an asset is stored under role.
func (r *Registry) Has(role Role) bool {
	_, ok := r.assets[role]
	return ok
}

// Remove deletes the asset for role and drops its buffers.
// Returns false if no asset was stored.
func (r *Registry) Remove(role Role) bool {
	a, ok := r.assets[role]
	if !ok {
		return false
	}
	delete(r.assets, role)
	for i, o := range r.order {
		if o == role {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	a.Vertices, a.Indices, a.Colors, a.SourceColors = nil, nil, nil, nil
	return true
}

// Len returns the number of stored assets.
func (r *Registry) Len() int {
	return len(r.assets)
}

// Roles returns the stored roles in insertion order.
func (r *Registry) Roles() []Role {
	out := make([]Role, len(r.order))
	copy(out, r.order)
	return out
}

// Assets returns the stored assets in insertion order.
func (r *Registry) Assets() []*Asset {
	out := make([]*Asset, 0, len(r.order))
	for _, role := range r.order {
		out = append(out, r.assets[role])
	}
	return out
}

// Pair returns the reference and scan assets, and whether both exist.
func (r *Registry) Pair() (reference, scan *Asset, ok bool) {
	reference, scan = r.assets[RoleReference], r.assets[RoleScan]
	return reference, scan, reference != nil && scan != nil
}

// Clear removes every asset.
func (r *Registry) Clear() {
	for _, role := range r.Roles() {
		r.Remove(role)
	}
}
