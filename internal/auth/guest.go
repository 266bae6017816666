package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	GuestCookie = "me_guest_id"
	guestPrefix = "guest|"
	guestTTL    = 30 * 24 * time.Hour
)

// GuestID returns the anonymous identifier carried by the guest cookie, or "".
func GuestID(r *http.Request) string {
	c, err := r.Cookie(GuestCookie)
	if err != nil || !strings.HasPrefix(c.Value, guestPrefix) || len(c.Value) == len(guestPrefix) {
		return ""
	}
	return c.Value
}

func setGuestCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(guestTTL),
	})
}

// GuestHandler hands the browser a stable anonymous identifier, reusing the
// one it already has. Guests are never stored; the id only ties submissions
// and sessions from the same browser together.
//
// POST /auth/guest
func GuestHandler(secureCookie bool) http.HandlerFunc {
	type out struct {
		GuestID string `json:"guest_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := GuestID(r)
		if id == "" {
			id = guestPrefix + uuid.NewString()
		}
		// refresh TTL either way
		setGuestCookie(w, id, secureCookie)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out{GuestID: id})
	}
}
