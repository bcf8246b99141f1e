// Package columnar writes per-cell Top-K contributor tables as Parquet.
package columnar

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/signalsfoundry/emfield/core"
)

// topKRow is the Parquet schema for one contributor record. Lat and Lon are
// the cell centre coordinates.
type topKRow struct {
	Lat          float64 `parquet:"lat"`
	Lon          float64 `parquet:"lon"`
	Band         string  `parquet:"band"`
	Rank         int32   `parquet:"rank"`
	SourceID     string  `parquet:"source_id"`
	Fraction     float64 `parquet:"fraction"`
	PowerDensWM2 float64 `parquet:"power_W_m2"`
}

// ParquetTopKWriter encodes Top-K diagnostics, one file per band. The zero
// value is ready to use.
type ParquetTopKWriter struct{}

// NewParquetTopKWriter returns a writer implementing core.TopKTableWriter.
func NewParquetTopKWriter() *ParquetTopKWriter { return &ParquetTopKWriter{} }

// WriteTopK writes the contributor records to path. An empty record set still
// produces a valid file with the full schema and zero rows.
func (w *ParquetTopKWriter) WriteTopK(path string, grid *core.Grid, bandName string, records []core.TopKRecord) error {
	rows := make([]topKRow, len(records))
	for i, rec := range records {
		rows[i] = topKRow{
			Lat:          grid.Lats[rec.Row],
			Lon:          grid.Lons[rec.Col],
			Band:         bandName,
			Rank:         int32(rec.Rank),
			SourceID:     rec.SourceID,
			Fraction:     rec.Fraction,
			PowerDensWM2: rec.PowerWM2,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("parquet: create %s: %w", path, err)
	}
	pw := parquet.NewGenericWriter[topKRow](f)
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			f.Close()
			return fmt.Errorf("parquet: write %s: %w", path, err)
		}
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("parquet: finalise %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("parquet: close %s: %w", path, err)
	}
	return nil
}
