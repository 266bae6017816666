package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/performance"
)

// POST /assessments
func CreateAssessmentHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID               string                `json:"id"`
			Title            string                `json:"title"`
			Kind             assessment.Kind       `json:"kind"`
			Questions        []assessment.Question `json:"questions"`
			TimeLimitSeconds *int                  `json:"time_limit_seconds"`
			Visibility       assessment.Visibility `json:"visibility"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		a, err := svc.Create(r.Context(), assessment.Assessment{
			ID:               req.ID,
			Title:            req.Title,
			Kind:             req.Kind,
			Questions:        req.Questions,
			TimeLimitSeconds: req.TimeLimitSeconds,
			Visibility:       req.Visibility,
			CreatorID:        viewerFrom(r).Subject,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /assessments/{id}
// Answer keys and explanations are never part of this response.
func GetAssessmentHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Get(r.Context(), chi.URLParam(r, "id"), viewerFrom(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.Stripped())
	}
}

// GET /shared/{token}
func SharedAssessmentHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.GetShared(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.Stripped())
	}
}

type submitResponse struct {
	SubmissionID string  `json:"submission_id"`
	Score        int     `json:"score"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"`
	Grade        string  `json:"grade"`
	Remark       string  `json:"remark"`
}

func toSubmitResponse(s assessment.Submission) submitResponse {
	return submitResponse{
		SubmissionID: s.ID,
		Score:        s.Score,
		Total:        s.Total,
		Percentage:   s.Percentage,
		Grade:        string(s.Grade),
		Remark:       s.Remark,
	}
}

// POST /assessments/{id}/submit
func SubmitHandler(svc *assessment.Service, guard *GuestGuard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers              map[int]string `json:"answers"`
			RespondentIdentifier string         `json:"respondent_identifier"`
			AttemptToken         string         `json:"attempt_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		resp := respondentFrom(r, req.RespondentIdentifier)
		if !guard.allow(w, r, resp) {
			return
		}
		sub, err := svc.Submit(r.Context(), assessment.SubmitInput{
			AssessmentID: chi.URLParam(r, "id"),
			Viewer:       viewerFrom(r),
			Respondent:   resp,
			Answers:      req.Answers,
			AttemptToken: req.AttemptToken,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSubmitResponse(sub))
	}
}

// GET /assessments/{id}/performance?submission_id=... | ?percentage=...
func PerformanceHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		v := viewerFrom(r)
		resp := respondentFrom(r, "")

		var (
			cmp performance.Comparison
			err error
		)
		switch {
		case q.Get("submission_id") != "":
			cmp, err = svc.SubmissionPerformance(r.Context(), chi.URLParam(r, "id"), q.Get("submission_id"), v, resp)
		case q.Get("percentage") != "":
			pct, perr := strconv.ParseFloat(q.Get("percentage"), 64)
			if perr != nil || pct < 0 || pct > 100 {
				http.Error(w, "percentage must be between 0 and 100", http.StatusBadRequest)
				return
			}
			cmp, err = svc.Performance(r.Context(), chi.URLParam(r, "id"), v, pct, resp.Key())
		default:
			http.Error(w, "submission_id or percentage required", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cmp)
	}
}

// GET /submissions/{id}/review
func ReviewHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rev, err := svc.Review(r.Context(), chi.URLParam(r, "id"), viewerFrom(r), respondentFrom(r, ""))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rev)
	}
}
