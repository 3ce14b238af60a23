package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bartek5186/cennik/internal/importer"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, importer.ErrEmptyInput),
		errors.Is(err, importer.ErrInvalidDiscount):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrConcurrentApply),
		errors.Is(err, importer.ErrRunApplied),
		errors.Is(err, importer.ErrRunNotMapped):
		return http.StatusConflict
	case importer.IsInputError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := importer.Code(err)

	ev := s.log.Warn()
	if status >= 500 {
		ev = s.log.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", status).Str("code", code).Msg("request failed")

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
