package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
}

// ReadyzHandler reports ready once the database answers. A nil pinger (memory
// store) is always ready.
func ReadyzHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.PingContext(ctx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GET /events?after=0&limit=100
func EventsHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		if err != nil {
			after = 0
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		out, err := events.Since(r.Context(), after, limit)
		if err != nil {
			http.Error(w, "list events", http.StatusInternalServerError)
			return
		}
		if out == nil {
			out = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"site_id": events.SiteID(), "events": out})
	}
}
