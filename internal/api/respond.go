package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeError maps domain errors onto status codes.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, interview.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Interview not found")
	case errors.Is(err, interview.ErrInvalidState), errors.Is(err, interview.ErrInvalidConfig), errors.Is(err, errBadRequest):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &maxBytes):
		writeDetail(w, http.StatusRequestEntityTooLarge, "upload too large")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}
