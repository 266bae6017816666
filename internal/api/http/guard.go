package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/ratelimit"
)

// GuestGuard throttles anonymous respondents. Authenticated users are not
// limited. A nil guard allows everything.
type GuestGuard struct {
	Limiter ratelimit.Limiter
	Log     *zap.Logger
}

// allow writes 400 for a caller with no usable identity, and 429 when an
// anonymous caller is over its limit. Identity is checked first so a bad
// request never spends quota. A limiter backend failure lets the request
// through.
func (g *GuestGuard) allow(w http.ResponseWriter, r *http.Request, resp assessment.Respondent) bool {
	if err := resp.Validate(); err != nil {
		writeError(w, err)
		return false
	}
	if g == nil || g.Limiter == nil || resp.UserID != "" {
		return true
	}
	key := "anon:" + resp.AnonymousID
	ok, err := g.Limiter.Allow(r.Context(), key)
	if err != nil {
		if g.Log != nil {
			g.Log.Warn("guest limiter unavailable", zap.String("key", key), zap.Error(err))
		}
		return true
	}
	if !ok {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return false
	}
	return true
}
