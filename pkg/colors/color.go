// Package colors provides the RGB color type shared by the mesh loaders,
// classifier and comparison engine.
package colors

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// ErrInvalidHex is returned when a hex color string cannot be parsed.
var ErrInvalidHex = errors.New("invalid hex color")

// Color is a linear RGB color with components in [0, 1].
type Color struct {
	R, G, B float32
}

// Predefined engine colors.
var (
	// Base is the default display color of a freshly loaded mesh.
	Base = Hex(0x5090c2)
	// Highlight marks the scan during comparison.
	Highlight = Hex(0xff3b30)
	// Neutral marks the reference during comparison.
	Neutral = Hex(0xc0c0c0)
	// Extraction tints the auxiliary reference overlay.
	Extraction = Hex(0xffb000)

	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
)

// Hex creates a color from a 0xRRGGBB value.
func Hex(v uint32) Color {
	return RGB(uint8(v>>16), uint8(v>>8), uint8(v))
}

// RGB creates a color from 8-bit channel values.
func RGB(r, g, b uint8) Color {
	return Color{
		R: float32(r) / 255.0,
		G: float32(g) / 255.0,
		B: float32(b) / 255.0,
	}
}

// HSL converts hue, saturation and lightness (all in [0, 1]) to RGB.
// Hue wraps around; saturation and lightness are clamped.
func HSL(h, s, l float64) Color {
	h = h - math.Floor(h)
	s = clamp01(s)
	l = clamp01(l)
	c := colorful.Hsl(h*360, s, l)
	return Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}

// ParseHex parses "#rrggbb", "rrggbb" or "0xrrggbb".
func ParseHex(s string) (Color, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "#")
	t = strings.TrimPrefix(strings.TrimPrefix(t, "0x"), "0X")
	if len(t) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return Hex(uint32(v)), nil
}

// Uint32 returns the color packed as 0xRRGGBB.
func (c Color) Uint32() uint32 {
	return uint32(to8(c.R))<<16 | uint32(to8(c.G))<<8 | uint32(to8(c.B))
}

// String returns the color as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%06x", c.Uint32())
}

// Array returns the components as a [3]float32 for vertex color buffers.
func (c Color) Array() [3]float32 {
	return [3]float32{c.R, c.G, c.B}
}

// MarshalYAML encodes the color as a hex string.
func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML decodes a hex string.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseHex(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Fill returns a slice of n copies of c.
func Fill(n int, c Color) []Color {
	out := make([]Color, n)
	for i := range out {
		out[i] = c
	}
	return out
}

// Flatten packs colors into an interleaved RGB float buffer.
func Flatten(cs []Color) []float32 {
	out := make([]float32, 0, len(cs)*3)
	for _, c := range cs {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

func to8(v float32) uint8 {
	return uint8(math.Round(float64(clamp01(float64(v))) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
