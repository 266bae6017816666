package grading

import "fmt"

// Kind selects the grade curve.
type Kind string

const (
	KindExam Kind = "exam"
	KindQuiz Kind = "quiz"
)

func (k Kind) Valid() bool { return k == KindExam || k == KindQuiz }

// Q is a minimal view of a question needed for grading.
type Q struct {
	Options []string
	Correct string
}

// Result is the outcome of grading one set of answers.
type Result struct {
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Grade      Grade   `json:"grade"`
	Remark     string  `json:"remark"`
	// Correct[i] reports whether question i was answered correctly.
	Correct []bool `json:"-"`
}

// Grader scores answers against an answer key. It holds no per-call state and
// is safe for concurrent use.
type Grader struct {
	bandings map[Kind]Banding
}

type Option func(*config)

type config struct {
	bandings map[Kind]Banding
}

// WithBanding replaces the curve used for kind.
func WithBanding(kind Kind, b Banding) Option {
	return func(c *config) {
		if len(b) > 0 {
			c.bandings[kind] = b
		}
	}
}

func NewGrader(opts ...Option) (*Grader, error) {
	cfg := &config{bandings: map[Kind]Banding{
		KindExam: ExamBanding,
		KindQuiz: QuizBanding,
	}}
	for _, o := range opts {
		o(cfg)
	}
	g := &Grader{bandings: map[Kind]Banding{}}
	for k, b := range cfg.bandings {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%s %w", k, err)
		}
		g.bandings[k] = b.Normalized()
	}
	return g, nil
}

// Banding returns the curve used for kind; unknown kinds use the exam curve.
func (g *Grader) Banding(kind Kind) Banding {
	if b, ok := g.bandings[kind]; ok {
		return b
	}
	return g.bandings[KindExam]
}

// Grade scores answers (question index → selected option) against questions.
// Missing, empty, or unrecognised answers count as incorrect and indices
// outside [0, len(questions)) are ignored; grading never fails.
func (g *Grader) Grade(kind Kind, questions []Q, answers map[int]string) Result {
	res := Result{Total: len(questions), Correct: make([]bool, len(questions))}
	for i, q := range questions {
		a, ok := answers[i]
		if !ok {
			continue
		}
		if Matches(q.Options, a, q.Correct) {
			res.Correct[i] = true
			res.Score++
		}
	}
	if res.Total == 0 {
		res.Grade = GradeNA
		res.Remark = remarkNoQuestions
		return res
	}
	res.Percentage = Percentage(res.Score, res.Total)
	res.Grade, res.Remark = g.Banding(kind).Classify(res.Percentage)
	return res
}

// Percentage returns score/total*100, or 0 when total is 0. The multiplication
// happens before the division so integer thresholds are hit exactly.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score*100) / float64(total)
}
