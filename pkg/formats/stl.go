package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"
	"strconv"
	"strings"

	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/encoding"
	"github.com/Faultbox/scanlab/pkg/math"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLASCII  = errors.New("invalid ASCII STL")
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50
	stlPrefixSize = stlHeaderSize + 4
)

// STLTriangle is one facet of an STL file.
type STLTriangle struct {
	Normal    math.Vec3
	Vertices  [3]math.Vec3
	Attribute uint16 // Attribute byte count; some exporters pack a color here
}

// STL represents a parsed STL file.
type STL struct {
	Header    string
	Binary    bool
	Triangles []STLTriangle

	// FaceColors is set when the header declares COLOR= and holds one color
	// per triangle.
	FaceColors []colors.Color
}

// Mesh converts the triangle soup into a Mesh. Vertices are emitted in face
// order, three per triangle, without deduplication.
func (s *STL) Mesh() *Mesh {
	m := &Mesh{
		Format:   FormatSTL,
		Header:   s.Header,
		Vertices: make([]math.Vec3, 0, len(s.Triangles)*3),
	}
	for _, tri := range s.Triangles {
		m.Vertices = append(m.Vertices, tri.Vertices[0], tri.Vertices[1], tri.Vertices[2])
	}
	if s.FaceColors != nil {
		m.Colors = make([]colors.Color, 0, len(m.Vertices))
		for _, c := range s.FaceColors {
			m.Colors = append(m.Colors, c, c, c)
		}
	}
	return m
}

// ParseSTL parses STL data, binary or ASCII.
func ParseSTL(data []byte) (*STL, error) {
	if isASCIISTL(data) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

// isASCIISTL reports whether data should be read as ASCII. Binary files may
// also start with "solid", so a buffer whose size matches the binary layout
// is always treated as binary.
func isASCIISTL(data []byte) bool {
	if len(data) >= stlPrefixSize {
		count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if uint64(stlPrefixSize)+uint64(count)*stlRecordSize == uint64(len(data)) {
			return false
		}
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("solid")) {
		return false
	}
	probe := trimmed
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	return bytes.Contains(probe, []byte("facet")) || bytes.Contains(probe, []byte("endsolid"))
}

func parseBinarySTL(data []byte) (*STL, error) {
	if len(data) < stlPrefixSize {
		return nil, parseErr(FormatSTL, ErrTruncatedSTLData, "header needs %d bytes, have %d", stlPrefixSize, len(data))
	}

	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	need := uint64(stlPrefixSize) + uint64(count)*stlRecordSize
	if need > uint64(len(data)) {
		return nil, parseErr(FormatSTL, ErrTruncatedSTLData,
			"declared %d triangles need %d bytes, have %d", count, need, len(data))
	}

	header := data[:stlHeaderSize]
	stl := &STL{
		Header:    encoding.FixedString(header),
		Binary:    true,
		Triangles: make([]STLTriangle, count),
	}

	defaultColor, hasColors := stlHeaderColor(header)
	if hasColors {
		stl.FaceColors = make([]colors.Color, count)
	}

	// Only the declared records are read; trailing bytes are ignored.
	off := stlPrefixSize
	for i := uint32(0); i < count; i++ {
		rec := data[off : off+stlRecordSize]
		tri := &stl.Triangles[i]
		tri.Normal = readVec3LE(rec[0:])
		tri.Vertices[0] = readVec3LE(rec[12:])
		tri.Vertices[1] = readVec3LE(rec[24:])
		tri.Vertices[2] = readVec3LE(rec[36:])
		tri.Attribute = binary.LittleEndian.Uint16(rec[48:])

		if hasColors {
			stl.FaceColors[i] = decodeSTLColor(tri.Attribute, defaultColor)
		}
		off += stlRecordSize
	}

	return stl, nil
}

// stlHeaderColor looks for the Materialise "COLOR=" marker followed by RGBA
// bytes.
func stlHeaderColor(header []byte) (colors.Color, bool) {
	idx := bytes.Index(header, []byte("COLOR="))
	if idx < 0 || idx+10 > len(header) {
		return colors.Color{}, false
	}
	rgba := header[idx+6 : idx+10]
	return colors.RGB(rgba[0], rgba[1], rgba[2]), true
}

// decodeSTLColor expands the 15-bit facet color. Bit 15 set means "use the
// default color".
func decodeSTLColor(attr uint16, def colors.Color) colors.Color {
	if attr&0x8000 != 0 {
		return def
	}
	return colors.Color{
		R: float32(attr&0x1f) / 31,
		G: float32((attr>>5)&0x1f) / 31,
		B: float32((attr>>10)&0x1f) / 31,
	}
}

func readVec3LE(b []byte) math.Vec3 {
	return math.Vec3{
		X: gomath.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: gomath.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: gomath.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func parseASCIISTL(data []byte) (*STL, error) {
	stl := &STL{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		current  STLTriangle
		inFacet  bool
		vertexNo int
		lineNo   int
	)

	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if lineNo == 1 && len(fields) > 1 {
				stl.Header = encoding.ToUTF8([]byte(strings.Join(fields[1:], " ")))
			}
		case "facet":
			if inFacet {
				return nil, parseErr(FormatSTL, ErrInvalidSTLASCII, "line %d: nested facet", lineNo)
			}
			current = STLTriangle{}
			if len(fields) == 5 && fields[1] == "normal" {
				n, err := parseFloats(fields[2:5])
				if err != nil {
					return nil, parseErr(FormatSTL, ErrInvalidSTLASCII, "line %d: facet normal: %v", lineNo, err)
				}
				current.Normal = n
			}
			inFacet = true
			vertexNo = 0
		case "vertex":
			if !inFacet || len(fields) != 4 || vertexNo >= 3 {
				return nil, parseErr(FormatSTL, ErrInvalidSTLASCII, "line %d: unexpected vertex", lineNo)
			}
			v, err := parseFloats(fields[1:4])
			if err != nil {
				return nil, parseErr(FormatSTL, ErrInvalidSTLASCII, "line %d: vertex: %v", lineNo, err)
			}
			current.Vertices[vertexNo] = v
			vertexNo++
		case "endfacet":
			if !inFacet || vertexNo != 3 {
				return nil, parseErr(FormatSTL, ErrInvalidSTLASCII, "line %d: facet has %d vertices", lineNo, vertexNo)
			}
			stl.Triangles = append(stl.Triangles, current)
			inFacet = false
		case "outer", "endloop", "endsolid":
		default:
			return nil, parseErr(FormatSTL, ErrInvalidSTLASCII, "line %d: unknown keyword %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, parseErr(FormatSTL, ErrInvalidSTLASCII, "scanning: %v", err)
	}
	if inFacet {
		return nil, parseErr(FormatSTL, ErrTruncatedSTLData, "unterminated facet")
	}

	return stl, nil
}

func parseFloats(fields []string) (math.Vec3, error) {
	var out [3]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = float32(v)
	}
	return math.Vec3FromArray(out), nil
}
