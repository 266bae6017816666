package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/performance"
)

func intPtr(v int) *int { return &v }

func capitalsQuiz(vis Visibility) Assessment {
	opts := []string{"Paris", "London", "Berlin", "Rome"}
	return Assessment{
		Title:      "Capitals",
		Kind:       grading.KindQuiz,
		CreatorID:  "teacher1",
		Visibility: vis,
		Questions: []Question{
			{Text: "France?", Options: opts, CorrectOption: "A", Explanation: "Paris is the capital of France."},
			{Text: "UK?", Options: opts, CorrectOption: "London"},
			{Text: "Germany?", Options: opts, CorrectOption: "C. Berlin"},
			{Text: "Italy?", Options: opts, CorrectOption: "d"},
		},
	}
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	g, err := grading.NewGrader()
	require.NoError(t, err)
	return NewService(store, g)
}

type countingObserver struct{ recorded, failed int }

func (c *countingObserver) SubmissionRecorded(kind, grade string) { c.recorded++ }
func (c *countingObserver) SubmissionFailed()                     { c.failed++ }

type failingStore struct {
	Store
	err error
}

func (f failingStore) CreateSubmission(context.Context, Submission) (Submission, bool, error) {
	return Submission{}, false, f.err
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(t, NewInMemoryStore())
	ctx := context.Background()

	bad := capitalsQuiz(VisibilityPrivate)
	bad.Questions[0].CorrectOption = "Madrid"
	_, err := svc.Create(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidAssessment)

	exam := capitalsQuiz(VisibilityPrivate)
	exam.Kind = grading.KindExam
	_, err = svc.Create(ctx, exam)
	assert.ErrorIs(t, err, ErrInvalidAssessment, "exam without time limit")

	quiz := capitalsQuiz(VisibilityPrivate)
	quiz.TimeLimitSeconds = intPtr(60)
	_, err = svc.Create(ctx, quiz)
	assert.ErrorIs(t, err, ErrInvalidAssessment, "timed quiz")

	oneOption := capitalsQuiz(VisibilityPrivate)
	oneOption.Questions[1].Options = []string{"London"}
	_, err = svc.Create(ctx, oneOption)
	assert.ErrorIs(t, err, ErrInvalidAssessment)

	ok, err := svc.Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)
	assert.NotEmpty(t, ok.ID)
	assert.NotEmpty(t, ok.ShareToken)

	dup := capitalsQuiz(VisibilityPrivate)
	dup.ID = ok.ID
	_, err = svc.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrExists)
}

func TestGet_Visibility(t *testing.T) {
	svc := newTestService(t, NewInMemoryStore())
	ctx := context.Background()
	priv, err := svc.Create(ctx, capitalsQuiz(VisibilityPrivate))
	require.NoError(t, err)
	pub, err := svc.Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)

	_, err = svc.Get(ctx, priv.ID, Viewer{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, priv.ID, Viewer{Subject: "someone", Role: "student"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, priv.ID, Viewer{Subject: "teacher1", Role: "teacher"})
	assert.NoError(t, err)
	_, err = svc.Get(ctx, priv.ID, Viewer{Subject: "root", Role: "admin"})
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "missing", Viewer{Role: "admin"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, pub.ID, Viewer{})
	require.NoError(t, err)
	stripped := got.Stripped()
	for _, q := range stripped.Questions {
		assert.Empty(t, q.CorrectOption)
		assert.Empty(t, q.Explanation)
	}
	assert.Empty(t, stripped.ShareToken)
	assert.Equal(t, "A", got.Questions[0].CorrectOption, "stripping must not touch the original")

	shared, err := svc.GetShared(ctx, pub.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, shared.ID)
	_, err = svc.GetShared(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmit_GradesAndRecords(t *testing.T) {
	obs := &countingObserver{}
	g, err := grading.NewGrader()
	require.NoError(t, err)
	svc := NewService(NewInMemoryStore(), g, WithObserver(obs),
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	ctx := context.Background()
	a, err := svc.Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, SubmitInput{
		AssessmentID: a.ID,
		Respondent:   Respondent{AnonymousID: "guest-1"},
		Answers:      map[int]string{0: "A. Paris", 1: "B", 2: "Rome", 3: "D", 42: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Score)
	assert.Equal(t, 4, sub.Total)
	assert.Equal(t, 75.0, sub.Percentage)
	assert.Equal(t, grading.GradeA, sub.Grade)
	assert.Equal(t, int64(1700000000), sub.SubmittedAt)
	assert.Equal(t, 1, obs.recorded)

	review, err := svc.Review(ctx, sub.ID, Viewer{}, Respondent{AnonymousID: "guest-1"})
	require.NoError(t, err)
	require.Len(t, review.Items, 4)
	assert.True(t, review.Items[0].Correct)
	assert.False(t, review.Items[2].Correct)
	assert.Equal(t, "Paris is the capital of France.", review.Items[0].Explanation)

	_, err = svc.Review(ctx, sub.ID, Viewer{}, Respondent{AnonymousID: "guest-2"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Review(ctx, sub.ID, Viewer{Subject: "teacher1", Role: "teacher"}, Respondent{UserID: "teacher1"})
	assert.NoError(t, err)
}

func TestSubmit_RespondentRules(t *testing.T) {
	svc := newTestService(t, NewInMemoryStore())
	ctx := context.Background()
	pub, err := svc.Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)
	priv, err := svc.Create(ctx, capitalsQuiz(VisibilityPrivate))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitInput{AssessmentID: pub.ID, Answers: map[int]string{0: "A"}})
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = svc.Submit(ctx, SubmitInput{AssessmentID: pub.ID,
		Respondent: Respondent{UserID: "u1", AnonymousID: "g1"}})
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = svc.Submit(ctx, SubmitInput{AssessmentID: priv.ID, Respondent: Respondent{AnonymousID: "g1"}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Submit(ctx, SubmitInput{AssessmentID: priv.ID,
		Viewer: Viewer{Subject: "teacher1", Role: "teacher"}, Respondent: Respondent{UserID: "teacher1"}})
	assert.NoError(t, err)
}

func TestSubmit_EmptyAssessment(t *testing.T) {
	svc := newTestService(t, NewInMemoryStore())
	ctx := context.Background()
	a, err := svc.Create(ctx, Assessment{Kind: grading.KindQuiz, Visibility: VisibilityPublic})
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, SubmitInput{AssessmentID: a.ID, Respondent: Respondent{AnonymousID: "g"},
		Answers: map[int]string{0: "A"}})
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Score)
	assert.Equal(t, grading.GradeNA, sub.Grade)
	assert.Equal(t, "No questions graded.", sub.Remark)
}

func TestSubmit_AttemptTokenIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	a, err := svc.Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)

	in := SubmitInput{AssessmentID: a.ID, Respondent: Respondent{AnonymousID: "g"},
		Answers: map[int]string{0: "A"}, AttemptToken: "attempt-1"}
	first, err := svc.Submit(ctx, in)
	require.NoError(t, err)
	in.Answers = map[int]string{0: "A", 1: "B"}
	second, err := svc.Submit(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Score, second.Score)

	subs, err := store.ListSubmissions(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	// no token: duplicates are allowed
	in.AttemptToken = ""
	_, err = svc.Submit(ctx, in)
	require.NoError(t, err)
	subs, err = store.ListSubmissions(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	mem := NewInMemoryStore()
	obs := &countingObserver{}
	g, err := grading.NewGrader()
	require.NoError(t, err)
	ctx := context.Background()
	a, err := NewService(mem, g).Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)

	svc := NewService(failingStore{Store: mem, err: errors.New("disk full")}, g, WithObserver(obs))
	_, err = svc.Submit(ctx, SubmitInput{AssessmentID: a.ID, Respondent: Respondent{AnonymousID: "g"}})
	assert.ErrorIs(t, err, ErrTransientPersistence)
	assert.Equal(t, 1, obs.failed)
	assert.Equal(t, 0, obs.recorded)

	subs, err := mem.ListSubmissions(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestPerformance(t *testing.T) {
	svc := newTestService(t, NewInMemoryStore())
	ctx := context.Background()
	a, err := svc.Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)

	_, err = svc.Performance(ctx, a.ID, Viewer{}, 50, "")
	assert.ErrorIs(t, err, performance.ErrUnavailable)

	first, err := svc.Submit(ctx, SubmitInput{AssessmentID: a.ID, Respondent: Respondent{AnonymousID: "first"},
		Answers: map[int]string{0: "A", 1: "B"}})
	require.NoError(t, err)

	// the only submission is the caller's own
	_, err = svc.SubmissionPerformance(ctx, a.ID, first.ID, Viewer{}, Respondent{AnonymousID: "first"})
	assert.ErrorIs(t, err, performance.ErrUnavailable)

	second, err := svc.Submit(ctx, SubmitInput{AssessmentID: a.ID, Respondent: Respondent{AnonymousID: "second"},
		Answers: map[int]string{0: "A", 1: "B", 2: "C", 3: "D"}})
	require.NoError(t, err)

	cmp, err := svc.SubmissionPerformance(ctx, a.ID, second.ID, Viewer{}, Respondent{AnonymousID: "second"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, cmp.Percentile)
	assert.Equal(t, 1, cmp.Population)

	cmp, err = svc.SubmissionPerformance(ctx, a.ID, first.ID, Viewer{}, Respondent{AnonymousID: "first"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, cmp.Percentile)

	other, err := svc.Create(ctx, capitalsQuiz(VisibilityPublic))
	require.NoError(t, err)
	_, err = svc.SubmissionPerformance(ctx, other.ID, first.ID, Viewer{}, Respondent{AnonymousID: "first"})
	assert.ErrorIs(t, err, ErrNotFound)
}
