package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// TopKRecord is one surviving per-cell contributor diagnostic. Row and Col
// address the grid cell, Rank is 0 for the dominant source. Fraction is the
// contributor's share of the cell's total power density, in (0, 1].
type TopKRecord struct {
	Row      int
	Col      int
	Rank     int
	SourceID string
	Fraction float64
	PowerWM2 float64
}

// BandResult holds the rasters and diagnostics computed for one band.
// Rasters are row-major (Grid.Index) with NaN marking masked or
// sub-threshold cells.
type BandResult struct {
	Name            string
	CenterFreqMHz   float64
	FieldDBuVPerM   []float64
	PowerDensityWM2 []float64
	TopK            []TopKRecord
}

// Result is the immutable outcome of one engine invocation.
type Result struct {
	Grid  *Grid
	Bands []BandResult
	// SourceIDs is the post-filter source ordering; Top-K source indices
	// refer into it.
	SourceIDs []string
	// FilteredSources counts sources removed by the influence buffer.
	FilteredSources int
	// ThresholdDBuVPerM is the no-data cutoff the rasters were masked with.
	ThresholdDBuVPerM float64
}

// Band returns the band result by name.
func (r *Result) Band(name string) (*BandResult, bool) {
	for i := range r.Bands {
		if r.Bands[i].Name == name {
			return &r.Bands[i], true
		}
	}
	return nil, false
}

// BandNames returns the band names in computation order.
func (r *Result) BandNames() []string {
	names := make([]string, len(r.Bands))
	for i := range r.Bands {
		names[i] = r.Bands[i].Name
	}
	return names
}

// FieldRasterWriter serialises one band's field-strength raster.
type FieldRasterWriter interface {
	WriteFieldRaster(path string, grid *Grid, fieldDBuVPerM []float64) error
}

// TopKTableWriter serialises one band's Top-K diagnostics.
type TopKTableWriter interface {
	WriteTopK(path string, grid *Grid, bandName string, records []TopKRecord) error
}

// WriteOutputs persists every band under dir, one subdirectory per band
// holding <band>_field_strength.tif and <band>_topk.parquet. Serialisation
// itself is delegated to the writers.
func (r *Result) WriteOutputs(dir string, raster FieldRasterWriter, topk TopKTableWriter) error {
	for i := range r.Bands {
		band := &r.Bands[i]
		bandDir := filepath.Join(dir, band.Name)
		if err := os.MkdirAll(bandDir, 0o755); err != nil {
			return fmt.Errorf("create band directory %s: %w", bandDir, err)
		}
		rasterPath := filepath.Join(bandDir, band.Name+"_field_strength.tif")
		if err := raster.WriteFieldRaster(rasterPath, r.Grid, band.FieldDBuVPerM); err != nil {
			return fmt.Errorf("write raster for band %s: %w", band.Name, err)
		}
		topkPath := filepath.Join(bandDir, band.Name+"_topk.parquet")
		if err := topk.WriteTopK(topkPath, r.Grid, band.Name, band.TopK); err != nil {
			return fmt.Errorf("write topk for band %s: %w", band.Name, err)
		}
	}
	return nil
}
