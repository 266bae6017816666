package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/auth"
	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

const respondentHeader = "X-Respondent-ID"

func viewerFrom(r *http.Request) assessment.Viewer {
	return assessment.Viewer{
		Subject: authmw.SubjectFromContext(r.Context()),
		Role:    rbac.RoleFromContext(r.Context()),
	}
}

// respondentFrom resolves who is answering. An authenticated caller is always
// the user; otherwise the first of explicit, the X-Respondent-ID header and
// the guest cookie is the anonymous identifier.
func respondentFrom(r *http.Request, explicit string) assessment.Respondent {
	if sub := authmw.SubjectFromContext(r.Context()); sub != "" {
		return assessment.Respondent{UserID: sub}
	}
	for _, id := range []string{explicit, r.Header.Get(respondentHeader), auth.GuestID(r)} {
		if id = strings.TrimSpace(id); id != "" {
			return assessment.Respondent{AnonymousID: id}
		}
	}
	return assessment.Respondent{}
}
