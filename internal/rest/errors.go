package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalsfoundry/emfield/internal/logging"
	"github.com/signalsfoundry/emfield/internal/service"
	"github.com/signalsfoundry/emfield/model"
)

// errorBody is the JSON error envelope shared by every endpoint.
type errorBody struct {
	Error string `json:"error"`
}

// StatusForError maps service and validation errors onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, model.ErrUnsupportedOption):
		return http.StatusUnprocessableEntity

	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, model.ErrBandNotFound),
		errors.Is(err, model.ErrQueryMismatch):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	code := StatusForError(err)
	if code == http.StatusInternalServerError && log != nil {
		log.Error(ctx, "request failed", logging.String("error", err.Error()))
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
