package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-assess/internal/db"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

func TestEventsHandler(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:events_handler?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })

	events := syncx.NewEventRepo(dbh, "site-a")
	for _, key := range []string{"s1", "s2", "s3"} {
		require.NoError(t, events.Append(ctx, syncx.Event{Type: syncx.TypeSubmissionRecorded, Key: key, DataJSON: "{}"}))
	}

	rec := httptest.NewRecorder()
	EventsHandler(events).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?after=1&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[struct {
		SiteID string        `json:"site_id"`
		Events []syncx.Event `json:"events"`
	}](t, rec)
	assert.Equal(t, "site-a", out.SiteID)
	require.Len(t, out.Events, 1)
	assert.Equal(t, "s2", out.Events[0].Key)

	rec = httptest.NewRecorder()
	EventsHandler(events).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?after=99", nil))
	assert.JSONEq(t, `{"site_id":"site-a","events":[]}`, rec.Body.String())
}
