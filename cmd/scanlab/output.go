package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/Faultbox/scanlab/internal/session"
	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/math"
)

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

func formatBounds(b math.Bounds) string {
	return fmt.Sprintf("%s .. %s", formatVec(b.Min), formatVec(b.Max))
}

// printSnapshot writes the state machines and one row per asset.
func printSnapshot(w io.Writer, snap session.Snapshot) error {
	fmt.Fprintf(w, "alignment:  %s\n", snap.Alignment)
	fmt.Fprintf(w, "comparison: %s\n", snap.Comparison)
	fmt.Fprintf(w, "extraction: %s\n\n", snap.Extraction)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tNAME\tFORMAT\tVERTICES\tPOSITION\tROTATION")
	for _, a := range snap.Assets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			a.Role, a.Name, a.Format, len(a.Vertices),
			formatVec(a.Transform.Position), formatVec(a.Transform.Rotation))
	}
	return tw.Flush()
}

// colorCount is the number of vertices painted one color.
type colorCount struct {
	Color colors.Color
	Count int
}

// histogram counts colors, most frequent first.
func histogram(cs []colors.Color) []colorCount {
	counts := make(map[colors.Color]int)
	for _, c := range cs {
		counts[c]++
	}
	out := make([]colorCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, colorCount{Color: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Color.String() < out[j].Color.String()
	})
	return out
}

func printHistogram(w io.Writer, cs []colors.Color) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLOR\tVERTICES\tSHARE")
	for _, cc := range histogram(cs) {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", cc.Color, cc.Count, 100*float64(cc.Count)/float64(len(cs)))
	}
	return tw.Flush()
}
