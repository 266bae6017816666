package assessment

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

type Kind = grading.Kind

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public_link"
)

type Question struct {
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectOption string   `json:"correct_option,omitempty" validate:"required"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Assessment is immutable once created.
type Assessment struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Kind             Kind       `json:"kind"`
	Questions        []Question `json:"questions"`
	TimeLimitSeconds *int       `json:"time_limit_seconds,omitempty"` // nil for untimed quizzes
	CreatorID        string     `json:"creator_id,omitempty"`
	Visibility       Visibility `json:"visibility"`
	ShareToken       string     `json:"share_token,omitempty"`
	CreatedAt        int64      `json:"created_at,omitempty"`
}

func (a Assessment) Timed() bool { return a.TimeLimitSeconds != nil && *a.TimeLimitSeconds > 0 }

// Stripped returns a copy safe to show respondents: no answer keys, no
// explanations, no share token.
func (a Assessment) Stripped() Assessment {
	out := a
	out.ShareToken = ""
	out.Questions = make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		out.Questions[i] = Question{Text: q.Text, Options: append([]string(nil), q.Options...)}
	}
	return out
}

// GradingKey is the view of the questions the grader needs.
func (a Assessment) GradingKey() []grading.Q {
	qs := make([]grading.Q, len(a.Questions))
	for i, q := range a.Questions {
		qs[i] = grading.Q{Options: q.Options, Correct: q.CorrectOption}
	}
	return qs
}

// Viewer is the caller as established by the auth layer. An empty Subject is
// an anonymous caller.
type Viewer struct {
	Subject string
	Role    string
}

func (v Viewer) Anonymous() bool { return v.Subject == "" }

// CanView reports whether v may read a. Public-link assessments are readable
// by anyone; private ones only by their creator or an admin.
func (a Assessment) CanView(v Viewer) bool {
	if a.Visibility == VisibilityPublic {
		return true
	}
	if v.Role == rbac.RoleAdmin {
		return true
	}
	return v.Subject != "" && v.Subject == a.CreatorID
}

// Respondent is exactly one of an authenticated user or an anonymous identifier.
type Respondent struct {
	UserID      string `json:"user_id,omitempty"`
	AnonymousID string `json:"anonymous_id,omitempty"`
}

func (r Respondent) Validate() error {
	switch {
	case r.UserID != "" && r.AnonymousID != "":
		return fmt.Errorf("%w: respondent is both a user and anonymous", ErrInvalidSubmission)
	case r.UserID == "" && strings.TrimSpace(r.AnonymousID) == "":
		return fmt.Errorf("%w: respondent_identifier required", ErrInvalidSubmission)
	}
	return nil
}

// Key identifies the respondent across submissions.
func (r Respondent) Key() string {
	if r.UserID != "" {
		return "user:" + r.UserID
	}
	if r.AnonymousID != "" {
		return "anon:" + r.AnonymousID
	}
	return ""
}

type Submission struct {
	ID           string         `json:"id"`
	AssessmentID string         `json:"assessment_id"`
	Respondent   Respondent     `json:"respondent"`
	Answers      map[int]string `json:"answers"`
	AttemptToken string         `json:"attempt_token,omitempty"`
	SubmittedAt  int64          `json:"submitted_at"`
	Score        int            `json:"score"`
	Total        int            `json:"total"`
	Percentage   float64        `json:"percentage"`
	Grade        grading.Grade  `json:"grade"`
	Remark       string         `json:"remark"`
}

// ReviewItem is one question revealed after a submission is final.
type ReviewItem struct {
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	Selected      string   `json:"selected,omitempty"`
	CorrectOption string   `json:"correct_option"`
	Explanation   string   `json:"explanation,omitempty"`
	Correct       bool     `json:"correct"`
}

type Review struct {
	Submission Submission   `json:"submission"`
	Items      []ReviewItem `json:"items"`
}
