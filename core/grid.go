package core

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/signalsfoundry/emfield/model"
)

// gridStepTolerance absorbs floating-point noise when the polygon span is an
// exact multiple of the resolution, so the step count stays stable.
const gridStepTolerance = 1e-9

// Grid is the sampling lattice derived from the request polygon. Rows run
// north to south: row 0 holds the northernmost latitude. Cells are addressed
// (i, j) with i in [0, Height) and j in [0, Width); flat slices are
// row-major.
type Grid struct {
	// Lats holds one latitude per row, descending.
	Lats []float64
	// Lons holds one longitude per column, ascending.
	Lons []float64
	// Mask marks cells inside the polygon, row-major.
	Mask []bool
	// Height and Width are the lattice dimensions.
	Height, Width int
	// ResolutionDeg is the angular cell size shared by both axes.
	ResolutionDeg float64
	// AltM is the AMSL altitude of the sampling slice in metres.
	AltM float64
	// InsideCount is the number of cells inside the polygon.
	InsideCount int
}

// BuildGrid constructs the lattice covering the polygon's bounding box at
// the requested resolution and masks cells by even-odd ray casting. The
// southern and eastern edges may overshoot the polygon bound by less than
// one step.
func BuildGrid(region model.Region, spec model.GridSpec) *Grid {
	ring := regionRing(region)
	bound := ring.Bound()
	latMin, latMax := bound.Min[1], bound.Max[1]
	lonMin, lonMax := bound.Min[0], bound.Max[0]
	res := spec.ResolutionDeg

	height := axisSteps(latMax-latMin, res) + 1
	width := axisSteps(lonMax-lonMin, res) + 1

	g := &Grid{
		Lats:          make([]float64, height),
		Lons:          make([]float64, width),
		Mask:          make([]bool, height*width),
		Height:        height,
		Width:         width,
		ResolutionDeg: res,
		AltM:          spec.AltM,
	}
	for i := 0; i < height; i++ {
		g.Lats[i] = latMax - float64(i)*res
	}
	for j := 0; j < width; j++ {
		g.Lons[j] = lonMin + float64(j)*res
	}
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			if planar.RingContains(ring, orb.Point{g.Lons[j], g.Lats[i]}) {
				g.Mask[i*width+j] = true
				g.InsideCount++
			}
		}
	}
	return g
}

func axisSteps(span, res float64) int {
	if span <= 0 {
		return 0
	}
	return int(math.Ceil(span/res - gridStepTolerance))
}

// Index returns the flat row-major index of cell (i, j).
func (g *Grid) Index(i, j int) int { return i*g.Width + j }

// CellCount returns the total number of lattice cells.
func (g *Grid) CellCount() int { return g.Height * g.Width }

// Empty reports whether masking left no cell inside the polygon.
func (g *Grid) Empty() bool { return g.InsideCount == 0 }

// Nearest returns the cell (i, j) whose centre is closest to the given
// coordinate by absolute lat/lon distance.
func (g *Grid) Nearest(lat, lon float64) (int, int) {
	return nearestIndex(g.Lats, lat), nearestIndex(g.Lons, lon)
}

func nearestIndex(values []float64, v float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, x := range values {
		if d := math.Abs(x - v); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// regionRing converts the request polygon into a closed orb ring with
// x = longitude, y = latitude.
func regionRing(region model.Region) orb.Ring {
	ring := make(orb.Ring, 0, len(region.Polygon)+1)
	for _, v := range region.Polygon {
		ring = append(ring, orb.Point{v.Lon, v.Lat})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}
