package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/signalsfoundry/emfield/core"
	"github.com/signalsfoundry/emfield/internal/service"
	"github.com/signalsfoundry/emfield/model"
)

func testRequestJSON() []byte {
	req := model.ComputeRequest{
		Region: model.Region{
			CRS: "WGS84",
			Polygon: []model.LatLon{
				{Lat: 0, Lon: 0},
				{Lat: 0.02, Lon: 0},
				{Lat: 0.02, Lon: 0.02},
				{Lat: 0, Lon: 0.02},
			},
		},
		Grid: model.GridSpec{ResolutionDeg: 0.01, AltM: 0},
		Bands: []model.Band{
			{Name: "VHF", FMinMHz: 100, FMaxMHz: 200},
		},
		Sources: []model.Source{
			{
				ID:       "tx1",
				Type:     model.SourceRadar,
				Position: model.SourcePosition{Lat: 0.01, Lon: 0.01, AltM: 10},
				Emission: model.Emission{
					EIRPdBm:       60,
					CenterFreqMHz: 150,
					BandwidthMHz:  10,
					Polarization:  model.PolarizationH,
				},
				Antenna: model.Antenna{
					Pattern: model.AntennaPattern{HPBWDeg: 10, VPBWDeg: 10},
					Scan:    model.ScanSpec{Mode: model.ScanCircular, RPM: 12},
				},
			},
		},
	}
	data, err := json.Marshal(req)
	if err != nil {
		panic(err)
	}
	return data
}

type nopRasterWriter struct{}

func (nopRasterWriter) WriteFieldRaster(string, *core.Grid, []float64) error { return nil }

type nopTopKWriter struct{}

func (nopTopKWriter) WriteTopK(string, *core.Grid, string, []core.TopKRecord) error { return nil }

func newTestHandler() http.Handler {
	svc := service.New(service.Config{}, nil, nil, nopRasterWriter{}, nopTopKWriter{})
	return NewServer(svc, nil, nil).Handler()
}

func postCompute(t *testing.T, handler http.Handler) computeResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/compute", bytes.NewReader(testRequestJSON()))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("compute status = %d, body %s", rec.Code, rec.Body)
	}
	var resp computeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode compute response: %v", err)
	}
	return resp
}

func TestHandleCompute_ReturnsJobSummary(t *testing.T) {
	handler := newTestHandler()
	resp := postCompute(t, handler)

	if resp.JobID == "" {
		t.Errorf("missing job_id")
	}
	if resp.Grid.Width != 3 || resp.Grid.Height != 3 {
		t.Errorf("grid summary %dx%d, want 3x3", resp.Grid.Width, resp.Grid.Height)
	}
	if len(resp.Bands) != 1 || resp.Bands[0] != "VHF" {
		t.Errorf("bands = %v", resp.Bands)
	}
	if resp.SourcesKept != 1 || resp.SourcesFiltered != 0 {
		t.Errorf("sources kept %d filtered %d", resp.SourcesKept, resp.SourcesFiltered)
	}
}

func TestHandleCompute_MalformedBody(t *testing.T) {
	handler := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/compute", strings.NewReader("{not json"))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCompute_UnsupportedOption(t *testing.T) {
	var raw map[string]any
	if err := json.Unmarshal(testRequestJSON(), &raw); err != nil {
		t.Fatal(err)
	}
	raw["metric"] = "power_W_m2"
	body, _ := json.Marshal(raw)

	handler := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/compute", bytes.NewReader(body))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHandleQuery_RoundTrip(t *testing.T) {
	handler := newTestHandler()
	resp := postCompute(t, handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/query?job_id="+resp.JobID+"&band=VHF&lat=0.01&lon=0.01&alt_m=0", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d, body %s", rec.Code, rec.Body)
	}

	var qr service.QueryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &qr); err != nil {
		t.Fatalf("decode query response: %v", err)
	}
	if qr.Lat != 0.01 || qr.Lon != 0.01 {
		t.Errorf("cell centre (%g, %g), want (0.01, 0.01)", qr.Lat, qr.Lon)
	}
	if len(qr.Contributors) != 1 || qr.Contributors[0].SourceID != "tx1" {
		t.Errorf("contributors = %+v", qr.Contributors)
	}
}

func TestHandleQuery_MissingBand(t *testing.T) {
	handler := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/query?lat=0&lon=0&alt_m=0", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQuery_UnknownBand(t *testing.T) {
	handler := newTestHandler()
	resp := postCompute(t, handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/query?job_id="+resp.JobID+"&band=Ka&lat=0.01&lon=0.01&alt_m=0", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleQuery_UnknownJob(t *testing.T) {
	handler := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/query?job_id=missing&band=VHF&lat=0&lon=0&alt_m=0", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleQuery_BadNumber(t *testing.T) {
	handler := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/query?band=VHF&lat=north&lon=0&alt_m=0", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleOutputs(t *testing.T) {
	handler := newTestHandler()
	resp := postCompute(t, handler)

	body, _ := json.Marshal(outputsRequest{JobID: resp.JobID, Dir: t.TempDir()})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/outputs", bytes.NewReader(body))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestHandleOutputs_MissingDir(t *testing.T) {
	handler := newTestHandler()
	body, _ := json.Marshal(outputsRequest{JobID: "x"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/outputs", bytes.NewReader(body))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestHandler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequestIDMiddleware_EchoesInboundID(t *testing.T) {
	handler := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/query?band=VHF&lat=0&lon=0&alt_m=0", nil)
	req.Header.Set(requestIDHeader, "req-abc")
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-abc" {
		t.Errorf("request ID header = %q, want it echoed back", got)
	}
}
