package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Faultbox/scanlab/pkg/math"
)

// createTestBinaryPLY creates a binary PLY with float xyz + uchar rgb vertices
// and triangle faces. declared overrides the vertex count when >= 0.
func createTestBinaryPLY(order binary.ByteOrder, verts []math.Vec3, faces [][3]int32, declared int) []byte {
	buf := new(bytes.Buffer)

	enc := "binary_little_endian"
	if order == binary.BigEndian {
		enc = "binary_big_endian"
	}
	count := len(verts)
	if declared >= 0 {
		count = declared
	}

	fmt.Fprintf(buf, "ply\nformat %s 1.0\ncomment generated\n", enc)
	fmt.Fprintf(buf, "element vertex %d\n", count)
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	fmt.Fprintf(buf, "element face %d\n", len(faces))
	buf.WriteString("property list uchar int vertex_indices\nend_header\n")

	for _, v := range verts {
		binary.Write(buf, order, v.Array())
		buf.Write([]byte{255, 128, 0})
	}
	for _, f := range faces {
		buf.WriteByte(3)
		binary.Write(buf, order, f)
	}

	return buf.Bytes()
}

var plyTestVertices = []math.Vec3{
	{X: 0, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 1, Y: 1, Z: 0.5},
}

func TestParsePLY_BinaryLittleEndian(t *testing.T) {
	data := createTestBinaryPLY(binary.LittleEndian, plyTestVertices, [][3]int32{{0, 1, 2}, {1, 3, 2}}, -1)

	ply, err := ParsePLY(data)
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}

	if ply.Header.Encoding != PLYBinaryLittleEndian {
		t.Errorf("expected binary_little_endian, got %s", ply.Header.Encoding)
	}
	if len(ply.Header.Comments) != 1 || ply.Header.Comments[0] != "generated" {
		t.Errorf("unexpected comments: %v", ply.Header.Comments)
	}
	if len(ply.Vertices) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(ply.Vertices))
	}
	if ply.Vertices[3] != plyTestVertices[3] {
		t.Errorf("vertex 3: got %v, want %v", ply.Vertices[3], plyTestVertices[3])
	}
	if len(ply.Colors) != 4 || ply.Colors[0].Uint32() != 0xff8000 {
		t.Errorf("expected 4 colors of #ff8000, got %v", ply.Colors)
	}

	m := ply.Mesh()
	want := []uint32{0, 1, 2, 1, 3, 2}
	if len(m.Indices) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(m.Indices))
	}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, m.Indices[i], want[i])
		}
	}
}

func TestParsePLY_BinaryBigEndian(t *testing.T) {
	data := createTestBinaryPLY(binary.BigEndian, plyTestVertices, nil, -1)

	ply, err := ParsePLY(data)
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if ply.Vertices[1] != plyTestVertices[1] {
		t.Errorf("vertex 1: got %v, want %v", ply.Vertices[1], plyTestVertices[1])
	}
	if ply.Mesh().Indices != nil {
		t.Error("expected nil indices with zero faces")
	}
}

func TestParsePLY_VertexCountExceedsData(t *testing.T) {
	// Header declares 100 vertices, body carries 4
	data := createTestBinaryPLY(binary.LittleEndian, plyTestVertices, nil, 100)

	_, err := ParsePLY(data)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !errors.Is(err, ErrTruncatedPLYData) {
		t.Errorf("expected ErrTruncatedPLYData, got %v", err)
	}
}

func TestParsePLY_ASCII(t *testing.T) {
	src := `ply
format ascii 1.0
element vertex 5
property float x
property float y
property float z
element face 1
property list uchar int vertex_index
end_header
0 0 0
1 0 0
1 1 0
0 1 0
0.5 0.5 2
4 0 1 2 3
`
	ply, err := ParsePLY([]byte(src))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}

	if len(ply.Vertices) != 5 {
		t.Fatalf("expected 5 vertices, got %d", len(ply.Vertices))
	}
	if ply.Vertices[4] != (math.Vec3{X: 0.5, Y: 0.5, Z: 2}) {
		t.Errorf("vertex 4: got %v", ply.Vertices[4])
	}
	if ply.Colors != nil {
		t.Error("expected no colors")
	}

	// Quad is fan-triangulated into two triangles
	m := ply.Mesh()
	want := []uint32{0, 1, 2, 0, 2, 3}
	if len(m.Indices) != len(want) {
		t.Fatalf("expected %d indices, got %v", len(want), m.Indices)
	}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, m.Indices[i], want[i])
		}
	}
}

func TestParsePLY_ASCIITruncated(t *testing.T) {
	src := "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n1 1 1\n"

	_, err := ParsePLY([]byte(src))
	if !errors.Is(err, ErrTruncatedPLYData) {
		t.Errorf("expected ErrTruncatedPLYData, got %v", err)
	}
}

func TestParsePLY_SkipsUnknownElements(t *testing.T) {
	src := `ply
format ascii 1.0
element material 2
property uchar ambient_red
property list uchar float coeffs
element vertex 1
property double x
property double y
property double z
end_header
10 2 0.1 0.2
20 0
3 4 5
`
	ply, err := ParsePLY([]byte(src))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(ply.Vertices) != 1 || ply.Vertices[0] != (math.Vec3{X: 3, Y: 4, Z: 5}) {
		t.Errorf("unexpected vertices: %v", ply.Vertices)
	}
}

func TestParsePLY_EmptyVertexElement(t *testing.T) {
	src := "ply\nformat binary_little_endian 1.0\nelement vertex 0\nproperty float x\nproperty float y\nproperty float z\nend_header\n"

	ply, err := ParsePLY([]byte(src))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(ply.Vertices) != 0 {
		t.Errorf("expected 0 vertices, got %d", len(ply.Vertices))
	}
}

func TestParsePLY_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"bad magic", "plz\nformat ascii 1.0\nend_header\n", ErrInvalidPLYMagic},
		{"no end_header", "ply\nformat ascii 1.0\nelement vertex 1\n", ErrInvalidPLYHeader},
		{"no format", "ply\nelement vertex 0\nend_header\n", ErrInvalidPLYHeader},
		{"unknown encoding", "ply\nformat binary_middle_endian 1.0\nend_header\n", ErrInvalidPLYHeader},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 0\nproperty quad x\nend_header\n", ErrInvalidPLYHeader},
		{"missing z", "ply\nformat ascii 1.0\nelement vertex 0\nproperty float x\nproperty float y\nend_header\n", ErrInvalidPLYHeader},
		{"property first", "ply\nformat ascii 1.0\nproperty float x\nend_header\n", ErrInvalidPLYHeader},
		{"negative count", "ply\nformat ascii 1.0\nelement vertex -1\nend_header\n", ErrInvalidPLYHeader},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePLY([]byte(tc.src))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestParsePLY_FaceIndexOutOfRange(t *testing.T) {
	data := createTestBinaryPLY(binary.LittleEndian, plyTestVertices, [][3]int32{{0, 1, 9}}, -1)

	_, err := ParsePLY(data)
	if !errors.Is(err, ErrInvalidPLYFace) {
		t.Errorf("expected ErrInvalidPLYFace, got %v", err)
	}
}

func TestParsePLY_ASCIIBadValue(t *testing.T) {
	src := "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 abc 0\n"

	_, err := ParsePLY([]byte(src))
	if !errors.Is(err, ErrInvalidPLYRecord) {
		t.Errorf("expected ErrInvalidPLYRecord, got %v", err)
	}
}

func TestParsePLY_BinaryTrailingData(t *testing.T) {
	// Header declares 2 vertices, body carries 3
	data := createTestBinaryPLY(binary.LittleEndian, plyTestVertices[:3], nil, 2)

	_, err := ParsePLY(data)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !errors.Is(err, ErrTrailingPLYData) {
		t.Errorf("expected ErrTrailingPLYData, got %v", err)
	}
}

func TestParsePLY_ASCIITrailingLines(t *testing.T) {
	src := "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n1 1 1\n2 2 2\n"

	_, err := ParsePLY([]byte(src))
	if !errors.Is(err, ErrTrailingPLYData) {
		t.Errorf("expected ErrTrailingPLYData, got %v", err)
	}

	// Blank lines after the last record are fine
	ply, err := ParsePLY([]byte(strings.Replace(src, "1 1 1\n2 2 2\n", "\n  \n", 1)))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(ply.Vertices) != 1 {
		t.Errorf("expected 1 vertex, got %d", len(ply.Vertices))
	}
}

func TestParsePLY_EndHeaderInComment(t *testing.T) {
	src := "ply\nformat ascii 1.0\ncomment exported before end_header rewrite\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 2 3\n"

	ply, err := ParsePLY([]byte(src))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(ply.Vertices) != 1 || ply.Vertices[0] != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected vertices: %v", ply.Vertices)
	}
	if len(ply.Header.Comments) != 1 || ply.Header.Comments[0] != "exported before end_header rewrite" {
		t.Errorf("unexpected comments: %v", ply.Header.Comments)
	}
}

func TestParsePLY_EndHeaderWithCRLF(t *testing.T) {
	src := "ply\r\nformat ascii 1.0\r\nelement vertex 1\r\nproperty float x\r\nproperty float y\r\nproperty float z\r\nend_header\r\n4 5 6\r\n"

	ply, err := ParsePLY([]byte(src))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(ply.Vertices) != 1 || ply.Vertices[0] != (math.Vec3{X: 4, Y: 5, Z: 6}) {
		t.Errorf("unexpected vertices: %v", ply.Vertices)
	}
}
