// Package rest exposes the compute service over an HTTP JSON API.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/signalsfoundry/emfield/internal/logging"
	"github.com/signalsfoundry/emfield/internal/observability"
	"github.com/signalsfoundry/emfield/internal/service"
	"github.com/signalsfoundry/emfield/model"
)

// maxRequestBodyBytes bounds inbound JSON bodies.
const maxRequestBodyBytes = 16 << 20

// Server wires the compute service into HTTP handlers.
type Server struct {
	svc     *service.Service
	log     logging.Logger
	metrics *observability.ComputeCollector
}

// NewServer constructs the HTTP boundary. Logger and metrics may be nil.
func NewServer(svc *service.Service, log logging.Logger, metrics *observability.ComputeCollector) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{svc: svc, log: log, metrics: metrics}
}

// Handler returns the routed handler, with request-ID and metrics middleware
// applied per route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "POST /v1/compute", "/v1/compute", http.HandlerFunc(s.handleCompute))
	s.route(mux, "GET /v1/query", "/v1/query", http.HandlerFunc(s.handleQuery))
	s.route(mux, "POST /v1/outputs", "/v1/outputs", http.HandlerFunc(s.handleOutputs))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) route(mux *http.ServeMux, pattern, path string, h http.Handler) {
	h = RequestIDMiddleware(path, s.log, h)
	if s.metrics != nil {
		h = s.metrics.Middleware(path, h)
	}
	mux.Handle(pattern, h)
}

// gridSummary describes the computed lattice in a compute response.
type gridSummary struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	InsideCells   int     `json:"inside_cells"`
	ResolutionDeg float64 `json:"resolution_deg"`
	AltM          float64 `json:"alt_m"`
}

// computeResponse acknowledges a finished compute job.
type computeResponse struct {
	JobID             string      `json:"job_id"`
	Grid              gridSummary `json:"grid"`
	Bands             []string    `json:"bands"`
	SourcesKept       int         `json:"sources_kept"`
	SourcesFiltered   int         `json:"sources_filtered"`
	ThresholdDBuVPerM float64     `json:"threshold_dbuv_per_m"`
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.LoggerFromContext(ctx)

	var req model.ComputeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(ctx, w, log, fmt.Errorf("%w: decode body: %v", model.ErrInvalidRequest, err))
		return
	}

	jobID, res, err := s.svc.Compute(ctx, &req)
	if err != nil {
		writeError(ctx, w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, computeResponse{
		JobID: jobID,
		Grid: gridSummary{
			Width:         res.Grid.Width,
			Height:        res.Grid.Height,
			InsideCells:   res.Grid.InsideCount,
			ResolutionDeg: res.Grid.ResolutionDeg,
			AltM:          res.Grid.AltM,
		},
		Bands:             res.BandNames(),
		SourcesKept:       len(res.SourceIDs),
		SourcesFiltered:   res.FilteredSources,
		ThresholdDBuVPerM: res.ThresholdDBuVPerM,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.LoggerFromContext(ctx)
	q := r.URL.Query()

	band := q.Get("band")
	if band == "" {
		writeError(ctx, w, log, fmt.Errorf("%w: band: parameter is required", model.ErrInvalidRequest))
		return
	}
	lat, err := parseFloatParam(q.Get("lat"), "lat")
	if err != nil {
		writeError(ctx, w, log, err)
		return
	}
	lon, err := parseFloatParam(q.Get("lon"), "lon")
	if err != nil {
		writeError(ctx, w, log, err)
		return
	}
	altM, err := parseFloatParam(q.Get("alt_m"), "alt_m")
	if err != nil {
		writeError(ctx, w, log, err)
		return
	}

	result, err := s.svc.Query(ctx, service.QueryParams{
		JobID: q.Get("job_id"),
		Band:  band,
		Lat:   lat,
		Lon:   lon,
		AltM:  altM,
	})
	if err != nil {
		writeError(ctx, w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// outputsRequest asks for a cached job's rasters and Top-K tables to be
// written under Dir.
type outputsRequest struct {
	JobID string `json:"job_id"`
	Dir   string `json:"dir"`
}

type outputsResponse struct {
	JobID string `json:"job_id"`
	Dir   string `json:"dir"`
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.LoggerFromContext(ctx)

	var req outputsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeError(ctx, w, log, fmt.Errorf("%w: decode body: %v", model.ErrInvalidRequest, err))
		return
	}
	if req.Dir == "" {
		writeError(ctx, w, log, fmt.Errorf("%w: dir: output directory is required", model.ErrInvalidRequest))
		return
	}

	if err := s.svc.WriteOutputs(ctx, req.JobID, req.Dir); err != nil {
		writeError(ctx, w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, outputsResponse{JobID: req.JobID, Dir: req.Dir})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseFloatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s: parameter is required", model.ErrInvalidRequest, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: not a number: %q", model.ErrInvalidRequest, name, raw)
	}
	return v, nil
}
