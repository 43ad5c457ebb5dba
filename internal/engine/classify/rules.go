// Package classify assigns per-vertex colors from ordered, data-driven
// geometric rules.
package classify

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/math"
)

// Rule set errors
var (
	ErrNoDefault    = errors.New("rule set has no default color")
	ErrInvalidPaint = errors.New("paint needs a color or a hue axis")
	ErrInvalidAxis  = errors.New("invalid axis")
)

// Axis selects a vertex coordinate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lowercase axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis parses "x", "y" or "z" (case-insensitive).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAxis, s)
}

// MarshalYAML encodes the axis by name.
func (a Axis) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// UnmarshalYAML decodes an axis name.
func (a *Axis) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseAxis(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Interval is an open range on one axis. Nil bounds are unbounded.
type Interval struct {
	Above *float32 `yaml:"above,omitempty"`
	Below *float32 `yaml:"below,omitempty"`
}

// Contains reports whether v lies strictly inside the interval.
func (iv Interval) Contains(v float32) bool {
	if iv.Above != nil && !(v > *iv.Above) {
		return false
	}
	if iv.Below != nil && !(v < *iv.Below) {
		return false
	}
	return true
}

// Box is an axis-aligned region built from one interval per axis.
type Box struct {
	X Interval `yaml:"x,omitempty"`
	Y Interval `yaml:"y,omitempty"`
	Z Interval `yaml:"z,omitempty"`
}

// Contains reports whether p lies inside every interval.
func (b Box) Contains(p math.Vec3) bool {
	return b.X.Contains(p.X) && b.Y.Contains(p.Y) && b.Z.Contains(p.Z)
}

// Paint is either a fixed color or a hue taken from a coordinate.
type Paint struct {
	Color *colors.Color `yaml:"color,omitempty"`
	Hue   *Axis         `yaml:"hue,omitempty"`
}

// At returns the paint color for p. A fixed color wins over a hue axis.
// ok is false when the paint has neither or its axis is out of range.
func (pt Paint) At(p math.Vec3) (c colors.Color, ok bool) {
	switch {
	case pt.Color != nil:
		return *pt.Color, true
	case pt.Hue != nil && *pt.Hue >= AxisX && *pt.Hue <= AxisZ:
		return HueOf(p.Component(int(*pt.Hue))), true
	}
	return colors.Color{}, false
}

func (pt Paint) valid() bool {
	return pt.Color != nil || pt.Hue != nil
}

// HueOf maps a coordinate to a fully saturated color with hue v/10.
func HueOf(v float32) colors.Color {
	return colors.HSL(float64(v)/10, 1, 0.5)
}

// Rule paints the vertices inside Region.
type Rule struct {
	Name   string `yaml:"name,omitempty"`
	Region Box    `yaml:"region"`
	Paint  Paint  `yaml:"paint"`
}

// RuleSet is an ordered list of rules; the first matching rule wins.
// Vertices matched by no rule get Default.
type RuleSet struct {
	Name    string        `yaml:"name"`
	Rules   []Rule        `yaml:"rules"`
	Default *colors.Color `yaml:"default"`
}

// Validate checks the rule set is usable by Classify.
func (rs RuleSet) Validate() error {
	if rs.Default == nil {
		return fmt.Errorf("%s: %w", rs.label(), ErrNoDefault)
	}
	for i, r := range rs.Rules {
		if !r.Paint.valid() {
			return fmt.Errorf("%s: rule %d (%s): %w", rs.label(), i, r.Name, ErrInvalidPaint)
		}
		if r.Paint.Hue != nil && (*r.Paint.Hue < AxisX || *r.Paint.Hue > AxisZ) {
			return fmt.Errorf("%s: rule %d (%s): %w", rs.label(), i, r.Name, ErrInvalidAxis)
		}
	}
	return nil
}

func (rs RuleSet) label() string {
	if rs.Name == "" {
		return "rule set"
	}
	return "rule set " + rs.Name
}

// ParseRuleSet decodes and validates a YAML rule set.
func ParseRuleSet(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRuleSet reads a YAML rule set from disk.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rule set: %w", err)
	}
	return ParseRuleSet(data)
}

// Encode renders the rule set as YAML.
func (rs RuleSet) Encode() ([]byte, error) {
	return yaml.Marshal(rs)
}
