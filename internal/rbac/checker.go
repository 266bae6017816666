package rbac

import (
	"context"
	"strings"
)

// Checker evaluates a role policy. A policy entry is an exact permission,
// "resource:*" for every action on one resource, or "*".
type Checker struct {
	policy map[string][]string
}

func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{policy: policy}
}

// Has reports whether role holds perm. Unknown roles hold nothing.
func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.policy[role] {
		if grants(p, perm) {
			return true
		}
	}
	return false
}

// Known reports whether the policy defines role.
func (c *Checker) Known(role string) bool {
	_, ok := c.policy[role]
	return ok
}

// SelfAssignable reports whether a local login may claim role without a
// password check. A role that can read every submission never is.
func (c *Checker) SelfAssignable(role string) bool {
	return c.Known(role) && !c.Has(role, PermSubmissionReviewAll)
}

func grants(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	resource, ok := strings.CutSuffix(pattern, ":*")
	return ok && strings.HasPrefix(perm, resource+":")
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns the role attached by the JWT middleware, or "".
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
