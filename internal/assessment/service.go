package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/performance"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// Observer receives submission outcomes (metrics).
type Observer interface {
	SubmissionRecorded(kind, grade string)
	SubmissionFailed()
}

type SubmitInput struct {
	AssessmentID string
	Viewer       Viewer
	Respondent   Respondent
	Answers      map[int]string
	// AttemptToken makes the submit idempotent for one attempt when set.
	AttemptToken string
}

// Service is the submit/grade/compare flow on top of a Store.
type Service struct {
	store    Store
	grader   *grading.Grader
	agg      *performance.Aggregator
	validate *validator.Validate
	log      *zap.Logger
	obs      Observer
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption       { return func(s *Service) { s.log = l } }
func WithObserver(o Observer) ServiceOption        { return func(s *Service) { s.obs = o } }
func WithClock(now func() time.Time) ServiceOption { return func(s *Service) { s.now = now } }

// WithAggregatorOptions configures the performance aggregator built on the store.
func WithAggregatorOptions(opts ...performance.Option) ServiceOption {
	return func(s *Service) { s.agg = performance.NewAggregator(PopulationSource{Store: s.store}, opts...) }
}

func NewService(store Store, grader *grading.Grader, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		grader:   grader,
		validate: validator.New(),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	s.agg = performance.NewAggregator(PopulationSource{Store: store})
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create stores a new assessment. Exams must carry a time limit and quizzes
// must not; every correct option must resolve to one of the question's options.
func (s *Service) Create(ctx context.Context, a Assessment) (Assessment, error) {
	if err := s.validateAssessment(a); err != nil {
		return Assessment{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Visibility == "" {
		a.Visibility = VisibilityPrivate
	}
	if a.Visibility == VisibilityPublic {
		a.ShareToken = strings.ReplaceAll(uuid.NewString(), "-", "")
	} else {
		a.ShareToken = ""
	}
	a.CreatedAt = s.now().Unix()
	if err := s.store.PutAssessment(ctx, a); err != nil {
		return Assessment{}, err
	}
	s.log.Info("assessment created",
		zap.String("assessment_id", a.ID),
		zap.String("kind", string(a.Kind)),
		zap.Int("questions", len(a.Questions)),
		zap.String("visibility", string(a.Visibility)))
	return a, nil
}

func (s *Service) validateAssessment(a Assessment) error {
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: kind must be exam or quiz", ErrInvalidAssessment)
	}
	switch a.Visibility {
	case "", VisibilityPrivate, VisibilityPublic:
	default:
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidAssessment, a.Visibility)
	}
	if a.Kind == grading.KindExam && !a.Timed() {
		return fmt.Errorf("%w: exams need a positive time_limit_seconds", ErrInvalidAssessment)
	}
	if a.Kind == grading.KindQuiz && a.TimeLimitSeconds != nil {
		return fmt.Errorf("%w: quizzes are untimed", ErrInvalidAssessment)
	}
	for i, q := range a.Questions {
		if err := s.validate.Struct(q); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidAssessment, i, err)
		}
		if !resolvesToOption(q) {
			return fmt.Errorf("%w: question %d: correct_option %q is not one of its options",
				ErrInvalidAssessment, i, q.CorrectOption)
		}
	}
	return nil
}

func resolvesToOption(q Question) bool {
	key := grading.Canonical(q.Options, q.CorrectOption)
	for i := range q.Options {
		if key == grading.Label(i) {
			return true
		}
	}
	return false
}

// Get returns the full assessment, answer keys included, when v may see it.
// Callers strip it before handing it to respondents.
func (s *Service) Get(ctx context.Context, id string, v Viewer) (Assessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if !a.CanView(v) {
		return Assessment{}, ErrNotFound
	}
	return a, nil
}

// GetShared resolves a public share-link token.
func (s *Service) GetShared(ctx context.Context, token string) (Assessment, error) {
	a, err := s.store.GetAssessmentByShareToken(ctx, token)
	if err != nil {
		return Assessment{}, err
	}
	if a.Visibility != VisibilityPublic {
		return Assessment{}, ErrNotFound
	}
	return a, nil
}

// Grade scores answers against a without recording anything.
func (s *Service) Grade(a Assessment, answers map[int]string) grading.Result {
	return s.grader.Grade(a.Kind, a.GradingKey(), answers)
}

// Submit grades answers and records exactly one Submission. A failed write
// is reported as ErrTransientPersistence and nothing is recorded.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Submission, error) {
	a, err := s.Get(ctx, in.AssessmentID, in.Viewer)
	if err != nil {
		return Submission{}, err
	}
	if err := in.Respondent.Validate(); err != nil {
		return Submission{}, err
	}
	res := s.Grade(a, in.Answers)

	answers := make(map[int]string, len(in.Answers))
	for k, v := range in.Answers {
		answers[k] = v
	}
	sub := Submission{
		ID:           uuid.NewString(),
		AssessmentID: a.ID,
		Respondent:   in.Respondent,
		Answers:      answers,
		AttemptToken: in.AttemptToken,
		SubmittedAt:  s.now().Unix(),
		Score:        res.Score,
		Total:        res.Total,
		Percentage:   res.Percentage,
		Grade:        res.Grade,
		Remark:       res.Remark,
	}
	stored, created, err := s.store.CreateSubmission(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Submission{}, err
		}
		s.log.Error("persist submission",
			zap.String("assessment_id", a.ID),
			zap.String("respondent", in.Respondent.Key()),
			zap.Error(err))
		if s.obs != nil {
			s.obs.SubmissionFailed()
		}
		return Submission{}, fmt.Errorf("%w: %v", ErrTransientPersistence, err)
	}
	if !created {
		s.log.Warn("duplicate attempt token, returning existing submission",
			zap.String("assessment_id", a.ID),
			zap.String("submission_id", stored.ID))
		return stored, nil
	}
	s.log.Info("submission recorded",
		zap.String("assessment_id", a.ID),
		zap.String("submission_id", stored.ID),
		zap.Int("score", stored.Score),
		zap.Int("total", stored.Total),
		zap.String("grade", string(stored.Grade)))
	if s.obs != nil {
		s.obs.SubmissionRecorded(string(a.Kind), string(stored.Grade))
	}
	return stored, nil
}

// Performance ranks pct against other respondents of the assessment.
// exclude is the respondent key being ranked.
func (s *Service) Performance(ctx context.Context, assessmentID string, v Viewer, pct float64, exclude string) (performance.Comparison, error) {
	if _, err := s.Get(ctx, assessmentID, v); err != nil {
		return performance.Comparison{}, err
	}
	return s.agg.Compare(ctx, assessmentID, pct, exclude)
}

// SubmissionPerformance ranks a recorded submission of assessmentID. A
// submission of any other assessment is ErrNotFound.
func (s *Service) SubmissionPerformance(ctx context.Context, assessmentID, submissionID string, v Viewer, r Respondent) (performance.Comparison, error) {
	sub, err := s.ownedSubmission(ctx, submissionID, v, r)
	if err != nil {
		return performance.Comparison{}, err
	}
	if sub.AssessmentID != assessmentID {
		return performance.Comparison{}, ErrNotFound
	}
	return s.agg.Compare(ctx, sub.AssessmentID, sub.Percentage, sub.Respondent.Key())
}

// Review reveals answer keys and explanations for a finished submission.
func (s *Service) Review(ctx context.Context, submissionID string, v Viewer, r Respondent) (Review, error) {
	sub, err := s.ownedSubmission(ctx, submissionID, v, r)
	if err != nil {
		return Review{}, err
	}
	a, err := s.store.GetAssessment(ctx, sub.AssessmentID)
	if err != nil {
		return Review{}, err
	}
	res := s.Grade(a, sub.Answers)
	items := make([]ReviewItem, len(a.Questions))
	for i, q := range a.Questions {
		items[i] = ReviewItem{
			Index:         i,
			Text:          q.Text,
			Options:       q.Options,
			Selected:      sub.Answers[i],
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
			Correct:       res.Correct[i],
		}
	}
	return Review{Submission: sub, Items: items}, nil
}

// ownedSubmission loads a submission visible to the caller: its respondent,
// the assessment's creator, or an admin.
func (s *Service) ownedSubmission(ctx context.Context, id string, v Viewer, r Respondent) (Submission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if key := r.Key(); key != "" && key == sub.Respondent.Key() {
		return sub, nil
	}
	if rbac.Can(v.Role, rbac.PermSubmissionReviewAll) {
		return sub, nil
	}
	a, err := s.store.GetAssessment(ctx, sub.AssessmentID)
	if err != nil {
		return Submission{}, err
	}
	if v.Subject != "" && v.Subject == a.CreatorID {
		return sub, nil
	}
	return Submission{}, ErrNotFound
}

// PopulationSource adapts a Store for the performance aggregator.
type PopulationSource struct{ Store Store }

func (p PopulationSource) Population(ctx context.Context, assessmentID string) ([]performance.Entry, error) {
	subs, err := p.Store.ListSubmissions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	out := make([]performance.Entry, len(subs))
	for i, sub := range subs {
		out[i] = performance.Entry{
			SubmissionID:  sub.ID,
			RespondentKey: sub.Respondent.Key(),
			Percentage:    sub.Percentage,
			SubmittedAt:   sub.SubmittedAt,
		}
	}
	return out, nil
}
