package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
)

// Assessments resolves the assessment a session is for.
type Assessments interface {
	Get(ctx context.Context, id string, v assessment.Viewer) (assessment.Assessment, error)
}

// Submitter grades and records the final answers of a session.
type Submitter interface {
	Submit(ctx context.Context, in assessment.SubmitInput) (assessment.Submission, error)
}

type Observer interface {
	SessionAutoSubmitted()
}

// Manager holds live sessions and drives their deadlines with a cooperative
// ticker. Sessions are in-memory; abandoning one leaves nothing behind once it
// is evicted.
type Manager struct {
	assessments Assessments
	submitter   Submitter

	mu       sync.RWMutex
	sessions map[string]*Session

	now  func() time.Time
	tick time.Duration
	ttl  time.Duration
	log  *zap.Logger
	obs  Observer
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }
func WithTick(d time.Duration) Option       { return func(m *Manager) { m.tick = d } }
func WithTTL(d time.Duration) Option        { return func(m *Manager) { m.ttl = d } }
func WithLogger(l *zap.Logger) Option       { return func(m *Manager) { m.log = l } }
func WithObserver(o Observer) Option        { return func(m *Manager) { m.obs = o } }

func NewManager(a Assessments, s Submitter, opts ...Option) *Manager {
	m := &Manager{
		assessments: a,
		submitter:   s,
		sessions:    map[string]*Session{},
		now:         time.Now,
		tick:        time.Second,
		ttl:         2 * time.Hour,
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start opens a session. Timed assessments go straight to active and the
// clock starts now; untimed ones wait in setup until submitted.
func (m *Manager) Start(ctx context.Context, assessmentID string, v assessment.Viewer, r assessment.Respondent) (Snapshot, error) {
	if err := r.Validate(); err != nil {
		return Snapshot{}, err
	}
	a, err := m.assessments.Get(ctx, assessmentID, v)
	if err != nil {
		return Snapshot{}, err
	}
	now := m.now()
	sess := newSession(uuid.NewString(), a, v, r, now)
	if a.Timed() {
		if err := sess.start(now); err != nil {
			return Snapshot{}, err
		}
	}

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	m.log.Info("session started",
		zap.String("session_id", sess.id),
		zap.String("assessment_id", a.ID),
		zap.Bool("timed", a.Timed()))
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(now), nil
}

// lookup returns the session if it belongs to r. Sessions owned by someone
// else are reported as missing.
func (m *Manager) lookup(id string, r assessment.Respondent) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || sess.respondent.Key() != r.Key() {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (m *Manager) Get(id string, r assessment.Respondent) (Snapshot, error) {
	sess, err := m.lookup(id, r)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(m.now()), nil
}

// SetAnswer records answers[index] = value; the last write wins.
func (m *Manager) SetAnswer(id string, r assessment.Respondent, index int, value string) (Snapshot, error) {
	sess, err := m.lookup(id, r)
	if err != nil {
		return Snapshot{}, err
	}
	now := m.now()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.setAnswer(now, index, value); err != nil {
		return sess.snapshot(now), err
	}
	return sess.snapshot(now), nil
}

// Submit finishes the session on the respondent's request. final is merged
// into the recorded answers first (untimed sessions submit everything here).
func (m *Manager) Submit(ctx context.Context, id string, r assessment.Respondent, final map[int]string) (Snapshot, error) {
	sess, err := m.lookup(id, r)
	if err != nil {
		return Snapshot{}, err
	}
	return m.finish(ctx, sess, ReasonManual, final)
}

// finish runs the one-shot active → finished transition. Whichever of a
// manual submit or a deadline tick claims it first does the grading; the
// other sees ErrSubmitInProgress or ErrFinished. The session id doubles as the
// attempt token so the store also refuses a second record.
func (m *Manager) finish(ctx context.Context, sess *Session, reason Reason, final map[int]string) (Snapshot, error) {
	sess.mu.Lock()
	answers, err := sess.beginFinish(m.now(), reason, final)
	if err != nil {
		snap := sess.snapshot(m.now())
		sess.mu.Unlock()
		return snap, err
	}
	in := assessment.SubmitInput{
		AssessmentID: sess.assessmentID,
		Viewer:       sess.viewer,
		Respondent:   sess.respondent,
		Answers:      answers,
		AttemptToken: sess.id,
	}
	sess.mu.Unlock()

	sub, err := m.submitter.Submit(ctx, in)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	now := m.now()
	if err != nil {
		sess.abortFinish()
		m.log.Warn("session submit failed, still active",
			zap.String("session_id", sess.id),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return sess.snapshot(now), err
	}
	sess.completeFinish(now, reason, sub)
	m.log.Info("session finished",
		zap.String("session_id", sess.id),
		zap.String("reason", string(reason)),
		zap.String("submission_id", sub.ID))
	return sess.snapshot(now), nil
}

// Tick auto-submits every timed session whose deadline has passed and evicts
// stale ones. It returns the number of sessions it auto-submitted.
func (m *Manager) Tick(ctx context.Context) int {
	now := m.now()

	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	var due, stale []*Session
	for _, s := range all {
		s.mu.Lock()
		switch {
		case s.state == StateActive && !s.submitting && s.remaining(now) <= 0:
			due = append(due, s)
		case s.state == StateFinished && now.Sub(s.finishedAt) > m.ttl:
			stale = append(stale, s)
		case s.state == StateSetup && !s.submitting && now.Sub(s.lastSeen) > m.ttl:
			// abandoned; never recorded as a submission
			stale = append(stale, s)
		}
		s.mu.Unlock()
	}

	fired := 0
	for _, s := range due {
		_, err := m.finish(ctx, s, ReasonDeadline, nil)
		switch {
		case err == nil:
			fired++
			if m.obs != nil {
				m.obs.SessionAutoSubmitted()
			}
		case errors.Is(err, ErrFinished), errors.Is(err, ErrSubmitInProgress):
			// a manual submit got there first
		default:
			// retried on the next tick
		}
	}

	if len(stale) > 0 {
		m.mu.Lock()
		for _, s := range stale {
			delete(m.sessions, s.id)
		}
		m.mu.Unlock()
		m.log.Debug("evicted sessions", zap.Int("count", len(stale)))
	}
	return fired
}

// Run ticks until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Tick(ctx)
		}
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
