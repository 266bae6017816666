package auth

import "context"

type subjectKey struct{}

// WithSubject records the authenticated user id on ctx.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the user id set by OptionalJWTMiddleware, or ""
// for an anonymous caller.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
