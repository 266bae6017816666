package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Can reports whether role holds perm under the default policy.
func Can(role, perm string) bool { return role != "" && defaultChecker.Has(role, perm) }

// Known reports whether the default policy defines role.
func Known(role string) bool { return defaultChecker.Known(role) }

// SelfAssignable reports whether a local login may claim role.
func SelfAssignable(role string) bool { return defaultChecker.SelfAssignable(role) }

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Can(RoleFromContext(r.Context()), perm) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIfRole enforces perm only for callers that carry a role. Anonymous
// callers pass through; visibility rules downstream decide what they see.
func RequireIfRole(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role != "" && !defaultChecker.Has(role, perm) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
