// Package performance ranks a score against the population of earlier
// submissions for the same assessment.
package performance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrUnavailable means there is nobody to compare against yet.
var ErrUnavailable = errors.New("not enough data")

// Entry is one prior submission as seen by the aggregator.
type Entry struct {
	SubmissionID  string
	RespondentKey string
	Percentage    float64
	SubmittedAt   int64
}

// Source lists the submissions recorded for an assessment. Snapshots may be
// stale; submissions landing concurrently are picked up on the next call.
type Source interface {
	Population(ctx context.Context, assessmentID string) ([]Entry, error)
}

type Comparison struct {
	Percentile float64 `json:"percentile"`
	Population int     `json:"population"`
	Message    string  `json:"message"`
}

// Observer is notified of computed percentiles (metrics).
type Observer interface {
	PercentileComputed(p float64)
}

type Aggregator struct {
	src     Source
	log     *zap.Logger
	obs     Observer
	message func(percentile float64) string
}

type Option func(*Aggregator)

func WithLogger(l *zap.Logger) Option { return func(a *Aggregator) { a.log = l } }
func WithObserver(o Observer) Option  { return func(a *Aggregator) { a.obs = o } }

// WithMessage overrides the human-readable comparison template.
func WithMessage(f func(percentile float64) string) Option {
	return func(a *Aggregator) { a.message = f }
}

func NewAggregator(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, log: zap.NewNop(), message: defaultMessage}
	for _, o := range opts {
		o(a)
	}
	return a
}

func defaultMessage(p float64) string {
	return fmt.Sprintf("You scored better than %.1f%% of other takers.", p)
}

// Compare ranks pct against the assessment's population. Each respondent
// counts once (their latest submission) and submissions by exclude, the
// respondent being ranked, are left out so a score never inflates itself.
func (a *Aggregator) Compare(ctx context.Context, assessmentID string, pct float64, exclude string) (Comparison, error) {
	entries, err := a.src.Population(ctx, assessmentID)
	if err != nil {
		return Comparison{}, fmt.Errorf("load population: %w", err)
	}
	scores := Dedupe(entries, exclude)
	p, err := Percentile(scores, pct)
	if err != nil {
		a.log.Debug("no population to compare",
			zap.String("assessment_id", assessmentID))
		return Comparison{}, err
	}
	if a.obs != nil {
		a.obs.PercentileComputed(p)
	}
	return Comparison{Percentile: p, Population: len(scores), Message: a.message(p)}, nil
}

// Dedupe keeps the latest entry per respondent, dropping exclude.
func Dedupe(entries []Entry, exclude string) []float64 {
	latest := make(map[string]Entry, len(entries))
	var anon []float64
	for _, e := range entries {
		if exclude != "" && e.RespondentKey == exclude {
			continue
		}
		if e.RespondentKey == "" {
			anon = append(anon, e.Percentage)
			continue
		}
		cur, ok := latest[e.RespondentKey]
		if !ok || e.SubmittedAt > cur.SubmittedAt ||
			(e.SubmittedAt == cur.SubmittedAt && e.SubmissionID > cur.SubmissionID) {
			latest[e.RespondentKey] = e
		}
	}
	out := make([]float64, 0, len(latest)+len(anon))
	for _, e := range latest {
		out = append(out, e.Percentage)
	}
	return append(out, anon...)
}

// Percentile returns 100 * |{s in population : s <= pct}| / |population|.
func Percentile(population []float64, pct float64) (float64, error) {
	if len(population) == 0 {
		return 0, ErrUnavailable
	}
	atOrBelow := 0
	for _, s := range population {
		if s <= pct {
			atOrBelow++
		}
	}
	return 100 * float64(atOrBelow) / float64(len(population)), nil
}
