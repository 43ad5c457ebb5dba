package formats

import (
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

// PLY format errors.
var (
	ErrInvalidPLYMagic  = errors.New("invalid PLY magic: expected 'ply'")
	ErrInvalidPLYHeader = errors.New("invalid PLY header")
	ErrTruncatedPLYData = errors.New("truncated PLY data")
	ErrTrailingPLYData  = errors.New("PLY data past the declared elements")
	ErrInvalidPLYRecord = errors.New("invalid PLY record")
	ErrInvalidPLYFace   = errors.New("invalid PLY face")
)

// PLYEncoding is the body encoding declared by the "format" header line.
type PLYEncoding int

// Body encodings.
const (
	PLYASCII PLYEncoding = iota
	PLYBinaryLittleEndian
	PLYBinaryBigEndian
)

// String returns the header keyword for the encoding.
func (e PLYEncoding) String() string {
	switch e {
	case PLYASCII:
		return "ascii"
	case PLYBinaryLittleEndian:
		return "binary_little_endian"
	case PLYBinaryBigEndian:
		return "binary_big_endian"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// PLYType is a scalar property type.
type PLYType int

// Scalar types with their canonical and alias names.
const (
	PLYInt8 PLYType = iota + 1
	PLYUint8
	PLYInt16
	PLYUint16
	PLYInt32
	PLYUint32
	PLYFloat32
	PLYFloat64
)

var plyTypeNames = map[string]PLYType{
	"char": PLYInt8, "int8": PLYInt8,
	"uchar": PLYUint8, "uint8": PLYUint8,
	"short": PLYInt16, "int16": PLYInt16,
	"ushort": PLYUint16, "uint16": PLYUint16,
	"int": PLYInt32, "int32": PLYInt32,
	"uint": PLYUint32, "uint32": PLYUint32,
	"float": PLYFloat32, "float32": PLYFloat32,
	"double": PLYFloat64, "float64": PLYFloat64,
}

// Size returns the binary width in bytes.
func (t PLYType) Size() int {
	switch t {
	case PLYInt8, PLYUint8:
		return 1
	case PLYInt16, PLYUint16:
		return 2
	case PLYInt32, PLYUint32, PLYFloat32:
		return 4
	case PLYFloat64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the type is a floating-point type.
func (t PLYType) IsFloat() bool {
	return t == PLYFloat32 || t == PLYFloat64
}

// PLYProperty is one property declaration of an element.
type PLYProperty struct {
	Name      string
	Type      PLYType // Item type for lists
	IsList    bool
	CountType PLYType // Only for lists
}

// PLYElement is one element declaration ("vertex", "face", ...).
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// FixedSize returns the record width in bytes and false when the element
// contains list properties.
func (e *PLYElement) FixedSize() (int, bool) {
	size := 0
	for _, p := range e.Properties {
		if p.IsList {
			return 0, false
		}
		size += p.Type.Size()
	}
	return size, true
}

func (e *PLYElement) propertyIndex(names ...string) int {
	for i, p := range e.Properties {
		for _, n := range names {
			if p.Name == n {
				return i
			}
		}
	}
	return -1
}

// PLYHeader holds the parsed header.
type PLYHeader struct {
	Encoding PLYEncoding
	Version  string
	Comments []string
	Elements []PLYElement
}

// Element returns the named element declaration, or nil.
func (h *PLYHeader) Element(name string) *PLYElement {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// PLY represents a parsed PLY file.
type PLY struct {
	Header   PLYHeader
	Vertices []math.Vec3
	Colors   []colors.Color // Nil unless the vertex element has red/green/blue
	Faces    [][]uint32     // Polygons as read; triangulated by Mesh
}

// Mesh converts the PLY into a Mesh, fan-triangulating polygons.
func (p *PLY) Mesh() *Mesh {
	m := &Mesh{
		Format:   FormatPLY,
		Header:   strings.Join(p.Header.Comments, "; "),
		Vertices: p.Vertices,
		Colors:   p.Colors,
	}
	if len(p.Faces) > 0 {
		m.Indices = make([]uint32, 0, len(p.Faces)*3)
		for _, f := range p.Faces {
			for i := 1; i+1 < len(f); i++ {
				m.Indices = append(m.Indices, f[0], f[i], f[i+1])
			}
		}
	}
	return m
}

// ParsePLY parses PLY data in any of the three encodings.
func ParsePLY(data []byte) (*PLY, error) {
	header, body, err := parsePLYHeader(data)
	if err != nil {
		return nil, err
	}

	ply := &PLY{Header: *header}

	var src plySource
	if header.Encoding == PLYASCII {
		src = newPLYTextSource(body)
	} else {
		var order binary.ByteOrder = binary.LittleEndian
		if header.Encoding == PLYBinaryBigEndian {
			order = binary.BigEndian
		}
		src = &plyBinarySource{data: body, order: order}
	}

	for i := range header.Elements {
		el := &header.Elements[i]
		switch el.Name {
		case "vertex":
			if err := readPLYVertices(ply, el, src); err != nil {
				return nil, err
			}
		case "face":
			if err := readPLYFaces(ply, el, src); err != nil {
				return nil, err
			}
		default:
			if err := skipPLYElement(el, src); err != nil {
				return nil, err
			}
		}
	}

	if n := src.trailing(); n > 0 {
		return nil, parseErr(FormatPLY, ErrTrailingPLYData, "%d unread %s after the last element", n, src.unit())
	}

	for fi, f := range ply.Faces {
		for _, idx := range f {
			if int(idx) >= len(ply.Vertices) {
				return nil, parseErr(FormatPLY, ErrInvalidPLYFace,
					"face %d references vertex %d of %d", fi, idx, len(ply.Vertices))
			}
		}
	}

	return ply, nil
}

// parsePLYHeader parses the header and returns the remaining body bytes.
func parsePLYHeader(data []byte) (*PLYHeader, []byte, error) {
	if !bytes.HasPrefix(data, []byte("ply")) {
		return nil, nil, parseErr(FormatPLY, ErrInvalidPLYMagic, "missing magic")
	}

	// The header ends at the first line that is exactly end_header; the
	// marker may also appear inside comments.
	var lines []string
	bodyStart := -1
	for off := 0; off < len(data); {
		line, next := data[off:], len(data)
		if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
			line, next = line[:nl], off+nl+1
		}
		if strings.TrimSpace(string(line)) == "end_header" {
			bodyStart = next
			break
		}
		lines = append(lines, string(line))
		off = next
	}
	if bodyStart < 0 {
		return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "missing end_header")
	}

	header := &PLYHeader{}
	sawFormat := false
	for n, raw := range lines {
		line := strings.TrimSpace(raw)
		if n == 0 || line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "format":
			if len(fields) != 3 {
				return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "line %d: malformed format", n+1)
			}
			switch fields[1] {
			case "ascii":
				header.Encoding = PLYASCII
			case "binary_little_endian":
				header.Encoding = PLYBinaryLittleEndian
			case "binary_big_endian":
				header.Encoding = PLYBinaryBigEndian
			default:
				return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "line %d: unknown encoding %q", n+1, fields[1])
			}
			header.Version = fields[2]
			sawFormat = true
		case "comment", "obj_info":
			header.Comments = append(header.Comments, encoding.ToUTF8([]byte(strings.TrimSpace(strings.TrimPrefix(line, fields[0])))))
		case "element":
			if len(fields) != 3 {
				return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "line %d: malformed element", n+1)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "line %d: invalid element count %q", n+1, fields[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: fields[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "line %d: property before element", n+1)
			}
			prop, err := parsePLYProperty(fields)
			if err != nil {
				return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "line %d: %v", n+1, err)
			}
			el := &header.Elements[len(header.Elements)-1]
			el.Properties = append(el.Properties, prop)
		default:
			return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "line %d: unknown keyword %q", n+1, fields[0])
		}
	}

	if !sawFormat {
		return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "missing format line")
	}
	if v := header.Element("vertex"); v != nil {
		for _, axis := range []string{"x", "y", "z"} {
			if v.propertyIndex(axis) < 0 {
				return nil, nil, parseErr(FormatPLY, ErrInvalidPLYHeader, "vertex element lacks property %q", axis)
			}
		}
	}

	return header, data[bodyStart:], nil
}

func parsePLYProperty(fields []string) (PLYProperty, error) {
	if len(fields) >= 2 && fields[1] == "list" {
		if len(fields) != 5 {
			return PLYProperty{}, fmt.Errorf("malformed list property")
		}
		countType, ok1 := plyTypeNames[fields[2]]
		itemType, ok2 := plyTypeNames[fields[3]]
		if !ok1 || !ok2 {
			return PLYProperty{}, fmt.Errorf("unknown list types %q/%q", fields[2], fields[3])
		}
		if countType.IsFloat() {
			return PLYProperty{}, fmt.Errorf("list count type must be integral")
		}
		return PLYProperty{Name: fields[4], Type: itemType, IsList: true, CountType: countType}, nil
	}
	if len(fields) != 3 {
		return PLYProperty{}, fmt.Errorf("malformed property")
	}
	t, ok := plyTypeNames[fields[1]]
	if !ok {
		return PLYProperty{}, fmt.Errorf("unknown type %q", fields[1])
	}
	return PLYProperty{Name: fields[2], Type: t}, nil
}

// plySource yields scalar values from the body in declaration order.
type plySource interface {
	// begin prepares for a record of el; ASCII sources advance a line.
	begin(el *PLYElement, record int) error
	scalar(t PLYType) (float64, error)
	// remaining returns the unread byte count, or -1 if unknown.
	remaining() int
	// trailing returns what is left after the last element, in units.
	trailing() int
	unit() string
}

type plyBinarySource struct {
	data  []byte
	off   int
	order binary.ByteOrder
}

func (s *plyBinarySource) begin(*PLYElement, int) error { return nil }

func (s *plyBinarySource) remaining() int { return len(s.data) - s.off }

func (s *plyBinarySource) trailing() int { return s.remaining() }

func (s *plyBinarySource) unit() string { return "bytes" }

func (s *plyBinarySource) scalar(t PLYType) (float64, error) {
	size := t.Size()
	if s.off+size > len(s.data) {
		return 0, ErrTruncatedPLYData
	}
	b := s.data[s.off : s.off+size]
	s.off += size

	switch t {
	case PLYInt8:
		return float64(int8(b[0])), nil
	case PLYUint8:
		return float64(b[0]), nil
	case PLYInt16:
		return float64(int16(s.order.Uint16(b))), nil
	case PLYUint16:
		return float64(s.order.Uint16(b)), nil
	case PLYInt32:
		return float64(int32(s.order.Uint32(b))), nil
	case PLYUint32:
		return float64(s.order.Uint32(b)), nil
	case PLYFloat32:
		return float64(gomath.Float32frombits(s.order.Uint32(b))), nil
	default:
		return gomath.Float64frombits(s.order.Uint64(b)), nil
	}
}

type plyTextSource struct {
	lines  []string
	next   int
	fields []string
	elName string
	record int
}

func newPLYTextSource(body []byte) *plyTextSource {
	return &plyTextSource{lines: strings.Split(string(body), "\n")}
}

func (s *plyTextSource) remaining() int { return -1 }

// trailing counts the non-blank lines not consumed by any record.
func (s *plyTextSource) trailing() int {
	n := 0
	for _, line := range s.lines[s.next:] {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func (s *plyTextSource) unit() string { return "lines" }

func (s *plyTextSource) begin(el *PLYElement, record int) error {
	for s.next < len(s.lines) {
		line := strings.TrimSpace(s.lines[s.next])
		s.next++
		if line == "" {
			continue
		}
		s.fields = strings.Fields(line)
		s.elName = el.Name
		s.record = record
		return nil
	}
	return ErrTruncatedPLYData
}

func (s *plyTextSource) scalar(t PLYType) (float64, error) {
	if len(s.fields) == 0 {
		return 0, fmt.Errorf("%w: %s %d has too few values", ErrInvalidPLYRecord, s.elName, s.record)
	}
	tok := s.fields[0]
	s.fields = s.fields[1:]
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %d: %q is not a number", ErrInvalidPLYRecord, s.elName, s.record, tok)
	}
	if !t.IsFloat() && v != gomath.Trunc(v) {
		return 0, fmt.Errorf("%w: %s %d: %q is not an integer", ErrInvalidPLYRecord, s.elName, s.record, tok)
	}
	return v, nil
}

// readPLYRecord reads one record of el into vals; list properties are stored
// in lists at the property's position.
func readPLYRecord(el *PLYElement, src plySource, record int, vals []float64, lists [][]float64) error {
	if err := src.begin(el, record); err != nil {
		return err
	}
	for i, p := range el.Properties {
		if !p.IsList {
			v, err := src.scalar(p.Type)
			if err != nil {
				return err
			}
			vals[i] = v
			continue
		}
		n, err := src.scalar(p.CountType)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: negative list length", ErrInvalidPLYRecord)
		}
		if r := src.remaining(); r >= 0 && int(n)*p.Type.Size() > r {
			return ErrTruncatedPLYData
		}
		items := lists[i][:0]
		for k := 0; k < int(n); k++ {
			v, err := src.scalar(p.Type)
			if err != nil {
				return err
			}
			items = append(items, v)
		}
		lists[i] = items
	}
	return nil
}

func plyRecordError(el *PLYElement, record int, err error) error {
	if errors.Is(err, ErrTruncatedPLYData) {
		return parseErr(FormatPLY, ErrTruncatedPLYData, "%s %d of %d", el.Name, record, el.Count)
	}
	return parseErr(FormatPLY, err, "%s %d", el.Name, record)
}

// checkFixedPLYElement rejects a declared count that cannot fit in the
// remaining binary bytes before decoding anything.
func checkFixedPLYElement(el *PLYElement, src plySource) error {
	size, fixed := el.FixedSize()
	rem := src.remaining()
	if !fixed || rem < 0 {
		return nil
	}
	if need := uint64(size) * uint64(el.Count); need > uint64(rem) {
		return parseErr(FormatPLY, ErrTruncatedPLYData,
			"declared %d %s records need %d bytes, have %d", el.Count, el.Name, need, rem)
	}
	return nil
}

func readPLYVertices(ply *PLY, el *PLYElement, src plySource) error {
	if err := checkFixedPLYElement(el, src); err != nil {
		return err
	}

	xi, yi, zi := el.propertyIndex("x"), el.propertyIndex("y"), el.propertyIndex("z")
	ri := el.propertyIndex("red", "diffuse_red")
	gi := el.propertyIndex("green", "diffuse_green")
	bi := el.propertyIndex("blue", "diffuse_blue")
	hasColor := ri >= 0 && gi >= 0 && bi >= 0

	ply.Vertices = make([]math.Vec3, 0, capHint(el.Count, src))
	if hasColor {
		ply.Colors = make([]colors.Color, 0, capHint(el.Count, src))
	}

	vals := make([]float64, len(el.Properties))
	lists := make([][]float64, len(el.Properties))
	for i := 0; i < el.Count; i++ {
		if err := readPLYRecord(el, src, i, vals, lists); err != nil {
			return plyRecordError(el, i, err)
		}
		ply.Vertices = append(ply.Vertices, math.Vec3{
			X: float32(vals[xi]),
			Y: float32(vals[yi]),
			Z: float32(vals[zi]),
		})
		if hasColor {
			ply.Colors = append(ply.Colors, colors.Color{
				R: plyChannel(el.Properties[ri].Type, vals[ri]),
				G: plyChannel(el.Properties[gi].Type, vals[gi]),
				B: plyChannel(el.Properties[bi].Type, vals[bi]),
			})
		}
	}
	return nil
}

func readPLYFaces(ply *PLY, el *PLYElement, src plySource) error {
	fi := el.propertyIndex("vertex_indices", "vertex_index")
	if fi < 0 || !el.Properties[fi].IsList {
		return skipPLYElement(el, src)
	}

	ply.Faces = make([][]uint32, 0, capHint(el.Count, src))
	vals := make([]float64, len(el.Properties))
	lists := make([][]float64, len(el.Properties))
	for i := 0; i < el.Count; i++ {
		if err := readPLYRecord(el, src, i, vals, lists); err != nil {
			return plyRecordError(el, i, err)
		}
		corners := lists[fi]
		if len(corners) < 3 {
			continue
		}
		face := make([]uint32, len(corners))
		for k, c := range corners {
			if c < 0 {
				return parseErr(FormatPLY, ErrInvalidPLYFace, "face %d has negative index", i)
			}
			face[k] = uint32(c)
		}
		ply.Faces = append(ply.Faces, face)
	}
	return nil
}

func skipPLYElement(el *PLYElement, src plySource) error {
	if err := checkFixedPLYElement(el, src); err != nil {
		return err
	}
	vals := make([]float64, len(el.Properties))
	lists := make([][]float64, len(el.Properties))
	for i := 0; i < el.Count; i++ {
		if err := readPLYRecord(el, src, i, vals, lists); err != nil {
			return plyRecordError(el, i, err)
		}
	}
	return nil
}

func plyChannel(t PLYType, v float64) float32 {
	if t.IsFloat() {
		return float32(v)
	}
	return float32(v / 255.0)
}

// capHint bounds preallocation by the body size so a bogus count cannot
// force a huge allocation.
func capHint(count int, src plySource) int {
	if rem := src.remaining(); rem >= 0 && count > rem {
		return rem
	}
	if count > 1<<20 {
		return 1 << 20
	}
	return count
}
