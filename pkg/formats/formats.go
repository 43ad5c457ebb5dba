// Package formats provides parsers for 3D scan mesh formats.
//
// Two formats are recognized by file extension: PLY (point-cloud exchange,
// ASCII or binary) and STL (triangle soup, binary or ASCII). Both parse into
// a Mesh holding vertices in file order, optional triangle indices and
// optional per-vertex colors carried by the file.
package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/math"
)

// Loader errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported mesh format")
	ErrEmptyInput        = errors.New("empty mesh input")
	ErrParse             = errors.New("mesh parse error")
)

// Format identifies a source mesh format.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatPLY
	FormatSTL
)

// String returns a human-readable format name.
func (f Format) String() string {
	switch f {
	case FormatPLY:
		return "PLY"
	case FormatSTL:
		return "STL"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ParseError describes malformed or truncated input.
// errors.Is(err, ErrParse) reports true for every ParseError.
type ParseError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parsing %s: %s", e.Format, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying format-specific error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func parseErr(f Format, err error, reason string, args ...any) error {
	return &ParseError{Format: f, Reason: fmt.Sprintf(reason, args...), Err: err}
}

// Mesh is a parsed mesh, independent of its source format.
type Mesh struct {
	Format Format
	// Header is free text from the file: the STL header or the PLY comments.
	Header   string
	Vertices []math.Vec3
	// Indices holds triangles as index triples. Nil for triangle soups.
	Indices []uint32
	// Colors holds per-vertex colors read from the file. Nil when the file
	// carries none; otherwise len(Colors) == len(Vertices).
	Colors []colors.Color
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles, indexed or not.
func (m *Mesh) TriangleCount() int {
	if m.Indices != nil {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 3
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() math.Bounds {
	return math.BoundsOf(m.Vertices)
}

// DetectFormat maps a file name to a Format by its extension.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ply":
		return FormatPLY
	case ".stl":
		return FormatSTL
	default:
		return FormatUnknown
	}
}

// Parse parses raw bytes according to the extension of name.
func Parse(name string, data []byte) (*Mesh, error) {
	format := DetectFormat(name)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	switch format {
	case FormatPLY:
		ply, err := ParsePLY(data)
		if err != nil {
			return nil, err
		}
		return ply.Mesh(), nil
	default:
		stl, err := ParseSTL(data)
		if err != nil {
			return nil, err
		}
		return stl.Mesh(), nil
	}
}

// ParseFile parses a mesh file from disk.
func ParseFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return Parse(filepath.Base(path), data)
}
