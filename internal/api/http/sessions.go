package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/session"
)

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// POST /assessments/{id}/sessions
func StartSessionHandler(mgr *session.Manager, guard *GuestGuard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RespondentIdentifier string `json:"respondent_identifier"`
		}
		if err := decodeOptional(r, &req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		resp := respondentFrom(r, req.RespondentIdentifier)
		if !guard.allow(w, r, resp) {
			return
		}
		snap, err := mgr.Start(r.Context(), chi.URLParam(r, "id"), viewerFrom(r), resp)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

// GET /sessions/{id}
func GetSessionHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := mgr.Get(chi.URLParam(r, "id"), respondentFrom(r, ""))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// PUT /sessions/{id}/answers/{index}  { "value": "B" }
func SetAnswerHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || idx < 0 {
			http.Error(w, "bad index", http.StatusBadRequest)
			return
		}
		var req struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		snap, err := mgr.SetAnswer(chi.URLParam(r, "id"), respondentFrom(r, ""), idx, req.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// POST /sessions/{id}/submit  { "answers": {...} }  (answers optional)
func SubmitSessionHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers map[int]string `json:"answers"`
		}
		if err := decodeOptional(r, &req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		snap, err := mgr.Submit(r.Context(), chi.URLParam(r, "id"), respondentFrom(r, ""), req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
