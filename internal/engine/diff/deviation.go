package diff

import (
	"errors"
	gomath "math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/internal/engine/spatial"
	"github.com/Faultbox/scanlab/pkg/colors"
)

// ErrNoBands is returned by a DeviationStrategy without bands.
var ErrNoBands = errors.New("deviation strategy has no bands")

// Band colors vertices whose deviation is at most Max.
type Band struct {
	Max   float64
	Color colors.Color
}

// DefaultBands returns green / yellow / orange bands in mesh units.
func DefaultBands() []Band {
	return []Band{
		{Max: 0.1, Color: colors.Hex(0x34c759)},
		{Max: 0.5, Color: colors.Hex(0xffcc00)},
		{Max: 1.0, Color: colors.Hex(0xff9500)},
	}
}

// Stats summarizes per-vertex deviations.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	RMS   float64
}

func statsOf(d []float64) Stats {
	if len(d) == 0 {
		return Stats{}
	}
	sq := make([]float64, len(d))
	for i, v := range d {
		sq[i] = v * v
	}
	return Stats{
		Count: len(d),
		Min:   floats.Min(d),
		Max:   floats.Max(d),
		Mean:  stat.Mean(d, nil),
		RMS:   gomath.Sqrt(stat.Mean(sq, nil)),
	}
}

// DeviationStrategy colors each vertex by its world-space distance to the
// nearest vertex of the other mesh.
type DeviationStrategy struct {
	Bands  []Band       // Sorted by Max on use
	Beyond colors.Color // Deviations past the last band
}

// NewDeviationStrategy creates a strategy with the given bands.
func NewDeviationStrategy(bands []Band, beyond colors.Color) *DeviationStrategy {
	return &DeviationStrategy{Bands: bands, Beyond: beyond}
}

func (s *DeviationStrategy) Name() string { return "deviation" }

// Colorize measures both directions concurrently, then recolors both assets.
func (s *DeviationStrategy) Colorize(reference, scan *registry.Asset) (*Report, error) {
	if len(s.Bands) == 0 {
		return nil, ErrNoBands
	}
	bands := make([]Band, len(s.Bands))
	copy(bands, s.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].Max < bands[j].Max })

	refWorld := reference.WorldVertices()
	scanWorld := scan.WorldVertices()

	var refDist, scanDist []float64
	var g errgroup.Group
	g.Go(func() error {
		refDist = spatial.NewIndex(scanWorld).Distances(refWorld)
		return nil
	})
	g.Go(func() error {
		scanDist = spatial.NewIndex(refWorld).Distances(scanWorld)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := reference.SetColors(s.paint(refDist, bands)); err != nil {
		return nil, err
	}
	if err := scan.SetColors(s.paint(scanDist, bands)); err != nil {
		return nil, err
	}

	return &Report{
		Strategy:  s.Name(),
		Reference: statsOf(refDist),
		Scan:      statsOf(scanDist),
	}, nil
}

func (s *DeviationStrategy) paint(dist []float64, bands []Band) []colors.Color {
	out := make([]colors.Color, len(dist))
	for i, d := range dist {
		out[i] = s.Beyond
		for _, b := range bands {
			if d <= b.Max {
				out[i] = b.Color
				break
			}
		}
	}
	return out
}

// Deviations returns the distance from each world vertex of a to the
// nearest world vertex of b.
func Deviations(a, b *registry.Asset) []float64 {
	return spatial.NewIndex(b.WorldVertices()).Distances(a.WorldVertices())
}
