package assessment

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu          sync.RWMutex
	assessments map[string]Assessment
	shares      map[string]string // share token -> assessment id
	submissions map[string]Submission
	byAssess    map[string][]string // assessment id -> submission ids, in insert order
}

func NewInMemoryStore() Store {
	return &memoryStore{
		assessments: map[string]Assessment{},
		shares:      map[string]string{},
		submissions: map[string]Submission{},
		byAssess:    map[string][]string{},
	}
}

func (m *memoryStore) PutAssessment(_ context.Context, a Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[a.ID]; ok {
		return ErrExists
	}
	m.assessments[a.ID] = cloneAssessment(a)
	if a.ShareToken != "" {
		m.shares[a.ShareToken] = a.ID
	}
	return nil
}

func (m *memoryStore) GetAssessment(_ context.Context, id string) (Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return Assessment{}, ErrNotFound
	}
	return cloneAssessment(a), nil
}

func (m *memoryStore) GetAssessmentByShareToken(ctx context.Context, token string) (Assessment, error) {
	m.mu.RLock()
	id, ok := m.shares[token]
	m.mu.RUnlock()
	if !ok {
		return Assessment{}, ErrNotFound
	}
	return m.GetAssessment(ctx, id)
}

func (m *memoryStore) CreateSubmission(_ context.Context, s Submission) (Submission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[s.AssessmentID]; !ok {
		return Submission{}, false, ErrNotFound
	}
	if s.AttemptToken != "" {
		for _, id := range m.byAssess[s.AssessmentID] {
			if prev := m.submissions[id]; prev.AttemptToken == s.AttemptToken {
				return cloneSubmission(prev), false, nil
			}
		}
	}
	m.submissions[s.ID] = cloneSubmission(s)
	m.byAssess[s.AssessmentID] = append(m.byAssess[s.AssessmentID], s.ID)
	return cloneSubmission(s), true, nil
}

func (m *memoryStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return cloneSubmission(s), nil
}

func (m *memoryStore) ListSubmissions(_ context.Context, assessmentID string) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byAssess[assessmentID]
	out := make([]Submission, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneSubmission(m.submissions[id]))
	}
	return out, nil
}

func cloneAssessment(a Assessment) Assessment {
	out := a
	out.Questions = make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	if a.TimeLimitSeconds != nil {
		v := *a.TimeLimitSeconds
		out.TimeLimitSeconds = &v
	}
	return out
}

func cloneSubmission(s Submission) Submission {
	out := s
	out.Answers = make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return out
}
