package core

import (
	"fmt"
	"math"
	"sync"

	"github.com/signalsfoundry/emfield/model"
)

// Engine runs the field-strength estimation pipeline. It is stateless; one
// instance can serve concurrent Compute calls.
type Engine struct{}

// NewEngine returns a ready engine.
func NewEngine() *Engine { return &Engine{} }

// Compute runs the full estimation for a validated request: grid
// construction, influence-buffer culling, per-band accumulation, field
// conversion, and threshold masking. Bands are computed on one goroutine
// each; within a band, sources fold into the accumulator in request order,
// so repeated runs of the same request produce identical rasters.
func (e *Engine) Compute(req *model.ComputeRequest) (*Result, error) {
	if len(req.Bands) == 0 {
		return nil, fmt.Errorf("%w: bands: at least one band is required", model.ErrInvalidRequest)
	}

	grid := BuildGrid(req.Region, req.Grid)
	sources, filtered := FilterSources(req.Sources, req.Region.Polygon, req.InfluenceBuffer())
	threshold := req.Threshold()

	sourceIDs := make([]string, len(sources))
	for i, src := range sources {
		sourceIDs[i] = src.ID
	}

	res := &Result{
		Grid:              grid,
		Bands:             make([]BandResult, len(req.Bands)),
		SourceIDs:         sourceIDs,
		FilteredSources:   filtered,
		ThresholdDBuVPerM: threshold,
	}

	var wg sync.WaitGroup
	for bi := range req.Bands {
		wg.Add(1)
		go func(bi int) {
			defer wg.Done()
			res.Bands[bi] = computeBand(req.Environment, grid, sources, req.Bands[bi], threshold)
		}(bi)
	}
	wg.Wait()
	return res, nil
}

// computeBand evaluates one band over the grid. Geometry is recomputed per
// band rather than shared so that peak transient memory stays at one
// accumulator per band regardless of source count.
func computeBand(env model.Environment, grid *Grid, sources []model.Source, band model.Band, threshold float64) BandResult {
	cells := grid.CellCount()
	acc := NewAccumulator(cells)
	fMHz := band.CenterMHz()

	for si := range sources {
		src := &sources[si]
		eirpW := EIRPdBmToW(src.Emission.EIRPdBm)
		gridAltM := grid.AltM
		for i := 0; i < grid.Height; i++ {
			lat := grid.Lats[i]
			rowBase := i * grid.Width
			for j := 0; j < grid.Width; j++ {
				cell := rowBase + j
				if !grid.Mask[cell] {
					continue
				}
				lon := grid.Lons[j]

				horizKm := DistanceKm(src.Position.Lat, src.Position.Lon, lat, lon)
				bearingDeg := AzimuthDeg(src.Position.Lat, src.Position.Lon, lat, lon)
				elevDeg := ElevationDeg(horizKm, src.Position.AltM, gridAltM)
				slantKm := SlantKm(horizKm, gridAltM-src.Position.AltM)

				gainDBi := AntennaGainDBi(src.Antenna, bearingDeg, elevDeg)
				extraDB := ExtraLossDB(env, fMHz, slantKm, horizKm, src.Position.AltM, gridAltM)

				s := PowerDensityWM2(eirpW, math.Pow(10.0, gainDBi/10.0), slantKm*1000.0, extraDB)
				acc.Add(cell, si, s)
			}
		}
	}

	field := make([]float64, cells)
	power := make([]float64, cells)
	var topk []TopKRecord
	nan := math.NaN()

	for cell := 0; cell < cells; cell++ {
		if !grid.Mask[cell] {
			field[cell], power[cell] = nan, nan
			acc.Clear(cell)
			continue
		}
		total := acc.TotalWM2(cell)
		f := FieldStrengthDBuVPerM(total)
		if f < threshold {
			field[cell], power[cell] = nan, nan
			acc.Clear(cell)
			continue
		}
		field[cell] = f
		power[cell] = total
		for rank, c := range acc.Top(cell) {
			topk = append(topk, TopKRecord{
				Row:      cell / grid.Width,
				Col:      cell % grid.Width,
				Rank:     rank,
				SourceID: sources[c.SourceIndex].ID,
				Fraction: c.PowerWM2 / total,
				PowerWM2: c.PowerWM2,
			})
		}
	}

	return BandResult{
		Name:            band.Name,
		CenterFreqMHz:   fMHz,
		FieldDBuVPerM:   field,
		PowerDensityWM2: power,
		TopK:            topk,
	}
}
