package classify

import (
	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/math"
)

// Classify returns one color per vertex. It is a pure function of the
// vertices and the rules. It does not validate rs: a missing default falls
// back to colors.Base, and a matching rule whose paint is unusable yields
// the default.
func Classify(vertices []math.Vec3, rs RuleSet) []colors.Color {
	out := make([]colors.Color, len(vertices))
	for i, v := range vertices {
		out[i] = rs.colorOf(v)
	}
	return out
}

func (rs RuleSet) colorOf(v math.Vec3) colors.Color {
	for _, r := range rs.Rules {
		if r.Region.Contains(v) {
			if c, ok := r.Paint.At(v); ok {
				return c
			}
			break
		}
	}
	if rs.Default == nil {
		return colors.Base
	}
	return *rs.Default
}

// Match returns the index of the first rule containing v, or -1.
func (rs RuleSet) Match(v math.Vec3) int {
	for i, r := range rs.Rules {
		if r.Region.Contains(v) {
			return i
		}
	}
	return -1
}

func bound(v float32) *float32 {
	return &v
}

func axis(a Axis) *Axis {
	return &a
}

func color(c colors.Color) *colors.Color {
	return &c
}

// Z threshold separating the base plate from raised features.
const plateZ = 0.0005

// SingleMesh returns the heuristic applied when only one mesh is loaded.
// Matching regions get a hue from one coordinate.
func SingleMesh() RuleSet {
	return RuleSet{
		Name: "single-mesh",
		Rules: []Rule{
			{
				Name:   "upper-right",
				Region: Box{X: Interval{Above: bound(2)}, Y: Interval{Above: bound(1)}},
				Paint:  Paint{Hue: axis(AxisY)},
			},
			{
				Name:   "upper-column",
				Region: Box{X: Interval{Above: bound(0), Below: bound(1)}, Y: Interval{Above: bound(2)}},
				Paint:  Paint{Hue: axis(AxisX)},
			},
			{
				Name:   "thin-column",
				Region: Box{X: Interval{Above: bound(0), Below: bound(0.2)}, Y: Interval{Above: bound(1), Below: bound(2)}},
				Paint:  Paint{Hue: axis(AxisZ)},
			},
			{
				Name:   "plate-right",
				Region: Box{X: Interval{Above: bound(0)}, Y: Interval{Below: bound(1)}, Z: Interval{Below: bound(plateZ)}},
				Paint:  Paint{Hue: axis(AxisY)},
			},
			{
				Name:   "raised-upper-left",
				Region: Box{X: Interval{Below: bound(-2)}, Y: Interval{Above: bound(2)}, Z: Interval{Above: bound(plateZ)}},
				Paint:  Paint{Hue: axis(AxisY)},
			},
			{
				Name:   "plate-left",
				Region: Box{X: Interval{Above: bound(-2), Below: bound(-1)}, Y: Interval{Above: bound(1.5), Below: bound(2)}, Z: Interval{Below: bound(plateZ)}},
				Paint:  Paint{Hue: axis(AxisY)},
			},
			{
				Name:   "raised-lower-left",
				Region: Box{X: Interval{Above: bound(-2), Below: bound(-1)}, Y: Interval{Below: bound(0.5)}, Z: Interval{Above: bound(plateZ)}},
				Paint:  Paint{Hue: axis(AxisY)},
			},
		},
		Default: color(colors.Base),
	}
}

// DualMesh returns the rules applied once a reference and a scan are both
// loaded. Each region gets a fixed color.
func DualMesh() RuleSet {
	return RuleSet{
		Name: "dual-mesh",
		Rules: []Rule{
			{
				Name:   "upper",
				Region: Box{Y: Interval{Above: bound(2)}},
				Paint:  Paint{Color: color(colors.Hex(0xff3b30))},
			},
			{
				Name:   "right",
				Region: Box{X: Interval{Above: bound(1)}, Y: Interval{Below: bound(2)}},
				Paint:  Paint{Color: color(colors.Hex(0x34c759))},
			},
			{
				Name:   "raised",
				Region: Box{Z: Interval{Above: bound(plateZ)}},
				Paint:  Paint{Color: color(colors.Hex(0xffcc00))},
			},
		},
		Default: color(colors.Base),
	}
}

// Builtin returns the named built-in rule set.
func Builtin(name string) (RuleSet, bool) {
	switch name {
	case "single-mesh":
		return SingleMesh(), true
	case "dual-mesh":
		return DualMesh(), true
	}
	return RuleSet{}, false
}

// Builtins returns every built-in rule set.
func Builtins() []RuleSet {
	return []RuleSet{SingleMesh(), DualMesh()}
}
