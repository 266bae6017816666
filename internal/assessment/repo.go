package assessment

import (
	"context"
	"errors"
)

var (
	// ErrNotFound covers unknown ids and assessments the caller may not see.
	ErrNotFound          = errors.New("not found")
	ErrExists            = errors.New("already exists")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrInvalidAssessment = errors.New("invalid assessment")
	// ErrTransientPersistence marks a failed write the caller may retry.
	ErrTransientPersistence = errors.New("submission could not be saved, retry")
)

// Store persists assessments and submissions. Assessments are write-once and
// submissions are written whole, so readers never see a partial record.
type Store interface {
	PutAssessment(ctx context.Context, a Assessment) error
	// GetAssessment returns the full assessment including answer keys.
	GetAssessment(ctx context.Context, id string) (Assessment, error)
	GetAssessmentByShareToken(ctx context.Context, token string) (Assessment, error)

	// CreateSubmission stores s. When s.AttemptToken matches an existing
	// submission for the same assessment, that submission is returned with
	// created=false and nothing is written.
	CreateSubmission(ctx context.Context, s Submission) (stored Submission, created bool, err error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissions(ctx context.Context, assessmentID string) ([]Submission, error)
}
