package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/emfield/core"
	"github.com/signalsfoundry/emfield/internal/logging"
	"github.com/signalsfoundry/emfield/internal/observability"
	"github.com/signalsfoundry/emfield/model"
)

// ErrJobNotFound marks a query against an unknown or evicted job ID.
var ErrJobNotFound = errors.New("job not found")

// altToleranceM is the maximum allowed difference between a queried altitude
// and the computed grid slice, in metres.
const altToleranceM = 1e-3

// DefaultCacheSize bounds the in-memory result cache.
const DefaultCacheSize = 8

// Config tunes the compute facade.
type Config struct {
	// CacheSize is the maximum number of retained compute results.
	CacheSize int
}

// Service is the compute facade: it validates requests, drives the engine,
// caches results by job ID, answers point queries, and hands results to the
// output writers.
type Service struct {
	cfg     Config
	engine  *core.Engine
	log     logging.Logger
	metrics *observability.ComputeCollector
	tracer  trace.Tracer
	cache   *resultCache

	raster core.FieldRasterWriter
	topk   core.TopKTableWriter
}

// New constructs a Service. Logger and metrics may be nil; writers may be
// nil when output writing is not used.
func New(cfg Config, log logging.Logger, metrics *observability.ComputeCollector, raster core.FieldRasterWriter, topk core.TopKTableWriter) *Service {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Service{
		cfg:     cfg,
		engine:  core.NewEngine(),
		log:     log,
		metrics: metrics,
		tracer:  otel.Tracer("emfield/service"),
		cache:   newResultCache(cfg.CacheSize),
		raster:  raster,
		topk:    topk,
	}
}

// Compute validates the request, runs the engine, and caches the result.
// It returns the job ID under which the result can be queried.
func (s *Service) Compute(ctx context.Context, req *model.ComputeRequest) (string, *core.Result, error) {
	ctx, log := logging.WithRequestLogger(ctx, s.log)
	ctx, span := s.tracer.Start(ctx, "service.Compute")
	defer span.End()
	start := time.Now()

	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		s.metrics.ObserveCompute("invalid", time.Since(start), 0, 0, 0)
		log.Warn(ctx, "compute request rejected", logging.String("error", err.Error()))
		return "", nil, err
	}

	res, err := s.engine.Compute(req)
	if err != nil {
		s.metrics.ObserveCompute("error", time.Since(start), 0, 0, 0)
		log.Error(ctx, "compute failed", logging.String("error", err.Error()))
		return "", nil, err
	}

	jobID := uuid.NewString()
	s.cache.Put(jobID, res)
	duration := time.Since(start)
	s.metrics.ObserveCompute("ok", duration, res.Grid.CellCount(), len(res.Bands), res.FilteredSources)
	span.SetAttributes(
		attribute.String("job_id", jobID),
		attribute.Int("grid_cells", res.Grid.CellCount()),
		attribute.Int("bands", len(res.Bands)),
	)
	log.Info(ctx, "compute finished",
		logging.String("job_id", jobID),
		logging.Int("grid_cells", res.Grid.CellCount()),
		logging.Int("inside_cells", res.Grid.InsideCount),
		logging.Int("bands", len(res.Bands)),
		logging.Int("sources_kept", len(res.SourceIDs)),
		logging.Int("sources_filtered", res.FilteredSources),
		logging.Float64("duration_seconds", duration.Seconds()),
	)
	return jobID, res, nil
}

// Result returns a cached result. An empty jobID resolves to the most
// recent job.
func (s *Service) Result(jobID string) (*core.Result, bool) {
	return s.cache.Get(jobID)
}

// QueryParams addresses one grid cell of one band of a cached result.
type QueryParams struct {
	// JobID selects the compute result; empty means the most recent.
	JobID string
	Band  string
	Lat   float64
	Lon   float64
	AltM  float64
}

// Contributor is one resolved Top-K entry of a queried cell.
type Contributor struct {
	Rank     int     `json:"rank"`
	SourceID string  `json:"source_id"`
	Fraction float64 `json:"fraction"`
}

// QueryResult is the nearest-cell lookup answer. Lat and Lon are the cell
// centre, not the queried coordinate.
type QueryResult struct {
	Lat             float64       `json:"lat"`
	Lon             float64       `json:"lon"`
	FieldDBuVPerM   float64       `json:"field_strength_dbuv_per_m"`
	PowerDensityWM2 float64       `json:"power_density_W_m2"`
	Contributors    []Contributor `json:"top_contributors"`
}

// Query resolves the nearest grid cell for a coordinate in one band of a
// cached result. The queried altitude must match the computed slice within
// a tight tolerance; masked and sub-threshold cells answer with
// ErrQueryMismatch, which the boundary translates to not-found.
func (s *Service) Query(ctx context.Context, p QueryParams) (*QueryResult, error) {
	_, span := s.tracer.Start(ctx, "service.Query",
		trace.WithAttributes(attribute.String("band", p.Band)))
	defer span.End()

	res, ok := s.cache.Get(p.JobID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrJobNotFound, p.JobID)
	}
	band, ok := res.Band(p.Band)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrBandNotFound, p.Band)
	}
	if math.Abs(p.AltM-res.Grid.AltM) > altToleranceM {
		return nil, fmt.Errorf("%w: altitude %g m does not match computed slice at %g m",
			model.ErrQueryMismatch, p.AltM, res.Grid.AltM)
	}

	i, j := res.Grid.Nearest(p.Lat, p.Lon)
	cell := res.Grid.Index(i, j)
	field := band.FieldDBuVPerM[cell]
	if math.IsNaN(field) {
		return nil, fmt.Errorf("%w: no data at cell (%d, %d)", model.ErrQueryMismatch, i, j)
	}

	var contributors []Contributor
	for _, rec := range band.TopK {
		if rec.Row == i && rec.Col == j {
			contributors = append(contributors, Contributor{
				Rank:     rec.Rank,
				SourceID: rec.SourceID,
				Fraction: rec.Fraction,
			})
		}
	}

	return &QueryResult{
		Lat:             res.Grid.Lats[i],
		Lon:             res.Grid.Lons[j],
		FieldDBuVPerM:   field,
		PowerDensityWM2: band.PowerDensityWM2[cell],
		Contributors:    contributors,
	}, nil
}

// WriteOutputs persists a cached result under dir using the injected
// writers.
func (s *Service) WriteOutputs(ctx context.Context, jobID, dir string) error {
	if s.raster == nil || s.topk == nil {
		return errors.New("output writers are not configured")
	}
	res, ok := s.cache.Get(jobID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrJobNotFound, jobID)
	}
	if err := res.WriteOutputs(dir, s.raster, s.topk); err != nil {
		return err
	}
	s.log.Info(ctx, "outputs written",
		logging.String("job_id", jobID),
		logging.String("dir", dir),
		logging.Int("bands", len(res.Bands)),
	)
	return nil
}
