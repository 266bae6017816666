// Package session tracks a single respondent's attempt at an assessment:
// setup → active (timed assessments only) → finished.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
)

type State string

const (
	StateSetup    State = "setup"
	StateActive   State = "active"
	StateFinished State = "finished"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrUntimed          = errors.New("untimed assessments have no active phase")
	ErrNotActive        = errors.New("session is not active")
	ErrFinished         = errors.New("session already finished")
	ErrSubmitInProgress = errors.New("submit already in progress")
	ErrDeadlinePassed   = errors.New("time is up")
)

// Reason records what finished a session.
type Reason string

const (
	ReasonManual   Reason = "manual"
	ReasonDeadline Reason = "deadline"
)

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID               string                 `json:"id"`
	AssessmentID     string                 `json:"assessment_id"`
	State            State                  `json:"state"`
	Answers          map[int]string         `json:"answers"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	Deadline         *time.Time             `json:"deadline,omitempty"`
	RemainingSeconds *int                   `json:"remaining_seconds,omitempty"`
	FinishedBy       Reason                 `json:"finished_by,omitempty"`
	Submission       *assessment.Submission `json:"submission,omitempty"`

	respondentKey string
}

// RespondentKey identifies who owns the session.
func (s Snapshot) RespondentKey() string { return s.respondentKey }

// Session is one attempt. The transition methods below assume mu is held.
type Session struct {
	mu sync.Mutex

	id           string
	assessmentID string
	viewer       assessment.Viewer
	respondent   assessment.Respondent
	timeLimit    time.Duration // zero for untimed

	state      State
	answers    map[int]string
	startedAt  time.Time
	submitting bool
	finishedBy Reason
	finishedAt time.Time
	submission *assessment.Submission
	lastSeen   time.Time
}

func newSession(id string, a assessment.Assessment, v assessment.Viewer, r assessment.Respondent, now time.Time) *Session {
	s := &Session{
		id:           id,
		assessmentID: a.ID,
		viewer:       v,
		respondent:   r,
		state:        StateSetup,
		answers:      map[int]string{},
		lastSeen:     now,
	}
	if a.Timed() {
		s.timeLimit = time.Duration(*a.TimeLimitSeconds) * time.Second
	}
	return s
}

func (s *Session) timed() bool { return s.timeLimit > 0 }

func (s *Session) deadline() time.Time { return s.startedAt.Add(s.timeLimit) }

// remaining is recomputed from the start time on every call, so missed or
// late ticks never drift.
func (s *Session) remaining(now time.Time) time.Duration {
	if !s.timed() || s.startedAt.IsZero() {
		return 0
	}
	return s.deadline().Sub(now)
}

func (s *Session) start(now time.Time) error {
	if !s.timed() {
		return ErrUntimed
	}
	switch s.state {
	case StateFinished:
		return ErrFinished
	case StateActive:
		return nil
	}
	s.state = StateActive
	s.startedAt = now
	s.lastSeen = now
	return nil
}

func (s *Session) setAnswer(now time.Time, index int, value string) error {
	switch {
	case s.state == StateFinished:
		return ErrFinished
	case s.state != StateActive:
		return ErrNotActive
	case s.submitting:
		return ErrSubmitInProgress
	case s.remaining(now) <= 0:
		return ErrDeadlinePassed
	}
	s.answers[index] = value
	s.lastSeen = now
	return nil
}

// beginFinish claims the one-shot finish transition. On success the caller
// must call completeFinish or abortFinish.
func (s *Session) beginFinish(now time.Time, reason Reason, final map[int]string) (map[int]string, error) {
	switch {
	case s.state == StateFinished:
		return nil, ErrFinished
	case s.submitting:
		return nil, ErrSubmitInProgress
	case s.timed() && s.state != StateActive:
		return nil, ErrNotActive
	case reason == ReasonDeadline && !s.timed():
		return nil, ErrUntimed
	}
	if s.timed() && s.remaining(now) <= 0 {
		// answers arriving with a late submit are dropped
		final = nil
	}
	for k, v := range final {
		s.answers[k] = v
	}
	s.submitting = true
	out := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out, nil
}

func (s *Session) completeFinish(now time.Time, reason Reason, sub assessment.Submission) {
	s.submitting = false
	s.state = StateFinished
	s.finishedBy = reason
	s.finishedAt = now
	s.submission = &sub
	s.lastSeen = now
}

// abortFinish leaves the session where it was so the submit can be retried.
func (s *Session) abortFinish() { s.submitting = false }

func (s *Session) snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		ID:            s.id,
		AssessmentID:  s.assessmentID,
		State:         s.state,
		Answers:       make(map[int]string, len(s.answers)),
		FinishedBy:    s.finishedBy,
		respondentKey: s.respondent.Key(),
	}
	for k, v := range s.answers {
		snap.Answers[k] = v
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		snap.StartedAt = &started
		if s.timed() {
			dl := s.deadline()
			snap.Deadline = &dl
			secs := 0
			if s.state == StateActive {
				if rem := s.remaining(now); rem > 0 {
					secs = int((rem + time.Second - 1) / time.Second)
				}
			}
			snap.RemainingSeconds = &secs
		}
	}
	if s.submission != nil {
		sub := *s.submission
		snap.Submission = &sub
	}
	return snap
}
