package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/performance"
	"github.com/mind-engage/mindengage-assess/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Persistence failures are
// retryable, so they carry Retry-After.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, performance.ErrUnavailable):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not enough data"})
	case errors.Is(err, assessment.ErrNotFound), errors.Is(err, session.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, assessment.ErrInvalidSubmission), errors.Is(err, assessment.ErrInvalidAssessment):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, assessment.ErrExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, assessment.ErrTransientPersistence):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "could not record submission, retry", http.StatusServiceUnavailable)
	case errors.Is(err, session.ErrFinished),
		errors.Is(err, session.ErrNotActive),
		errors.Is(err, session.ErrSubmitInProgress),
		errors.Is(err, session.ErrDeadlinePassed),
		errors.Is(err, session.ErrUntimed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
