package core

import (
	"testing"

	"github.com/signalsfoundry/emfield/model"
)

func squareRegion(latMin, lonMin, latMax, lonMax float64) model.Region {
	// Vertices listed clockwise.
	return model.Region{
		CRS: "WGS84",
		Polygon: []model.LatLon{
			{Lat: latMin, Lon: lonMin},
			{Lat: latMax, Lon: lonMin},
			{Lat: latMax, Lon: lonMax},
			{Lat: latMin, Lon: lonMax},
		},
	}
}

func TestBuildGrid_Dimensions(t *testing.T) {
	g := BuildGrid(squareRegion(0, 0, 1, 1), model.GridSpec{ResolutionDeg: 0.5, AltM: 10})
	if g.Height != 3 || g.Width != 3 {
		t.Fatalf("expected 3x3 grid, got %dx%d", g.Height, g.Width)
	}
	if g.AltM != 10 {
		t.Errorf("altitude not carried: got %g", g.AltM)
	}
}

func TestBuildGrid_ExactMultipleSpanIsStable(t *testing.T) {
	// 1.0 / 0.1 must give 10 steps, not 11, despite floating-point noise.
	g := BuildGrid(squareRegion(0, 0, 1, 1), model.GridSpec{ResolutionDeg: 0.1})
	if g.Height != 11 || g.Width != 11 {
		t.Errorf("expected 11x11 grid, got %dx%d", g.Height, g.Width)
	}
}

func TestBuildGrid_RowsRunNorthToSouth(t *testing.T) {
	g := BuildGrid(squareRegion(0, 0, 1, 1), model.GridSpec{ResolutionDeg: 0.5})
	if g.Lats[0] != 1.0 || g.Lats[len(g.Lats)-1] != 0.0 {
		t.Errorf("latitudes not descending from the north edge: %v", g.Lats)
	}
	if g.Lons[0] != 0.0 || g.Lons[len(g.Lons)-1] != 1.0 {
		t.Errorf("longitudes not ascending from the west edge: %v", g.Lons)
	}
}

func TestBuildGrid_MasksCellsOutsidePolygon(t *testing.T) {
	// A triangle over the south-west half of the unit square leaves the
	// north-east corner cell outside.
	region := model.Region{
		CRS: "WGS84",
		Polygon: []model.LatLon{
			{Lat: 0, Lon: 0},
			{Lat: 1, Lon: 0},
			{Lat: 0, Lon: 1},
		},
	}
	g := BuildGrid(region, model.GridSpec{ResolutionDeg: 0.25})

	// Cell (0, width-1) is the north-east corner, outside the triangle.
	if g.Mask[g.Index(0, g.Width-1)] {
		t.Errorf("north-east corner should be masked out")
	}
	// The cell nearest the right-angle corner is inside.
	i, j := g.Nearest(0.1, 0.1)
	if !g.Mask[g.Index(i, j)] {
		t.Errorf("cell near (0.1, 0.1) should be inside")
	}
	if g.InsideCount == 0 || g.InsideCount == g.CellCount() {
		t.Errorf("expected a partial mask, inside=%d of %d", g.InsideCount, g.CellCount())
	}
}

func TestGrid_Nearest(t *testing.T) {
	g := BuildGrid(squareRegion(0, 0, 1, 1), model.GridSpec{ResolutionDeg: 0.5})
	i, j := g.Nearest(0.6, 0.2)
	if g.Lats[i] != 0.5 || g.Lons[j] != 0.0 {
		t.Errorf("nearest cell centre (%g, %g), want (0.5, 0)", g.Lats[i], g.Lons[j])
	}
}

func TestGrid_Empty(t *testing.T) {
	g := &Grid{Height: 2, Width: 2, Mask: make([]bool, 4)}
	if !g.Empty() {
		t.Errorf("grid with no inside cells should be empty")
	}
}

func TestAxisSteps_NonPositiveSpan(t *testing.T) {
	if got := axisSteps(0, 0.1); got != 0 {
		t.Errorf("zero span: got %d steps, want 0", got)
	}
	if got := axisSteps(-1, 0.1); got != 0 {
		t.Errorf("negative span: got %d steps, want 0", got)
	}
}

func TestAxisSteps_RoundsPartialStepUp(t *testing.T) {
	if got := axisSteps(0.25, 0.1); got != 3 {
		t.Errorf("got %d steps, want 3", got)
	}
	if got := axisSteps(1.0, 0.01); got != 100 {
		t.Errorf("exact multiple: got %d steps, want 100", got)
	}
}
