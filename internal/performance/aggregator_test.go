package performance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	entries map[string][]Entry
	err     error
}

func (f fakeSource) Population(_ context.Context, id string) ([]Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[id], nil
}

type recordingObserver struct{ got []float64 }

func (r *recordingObserver) PercentileComputed(p float64) { r.got = append(r.got, p) }

func TestPercentile_NinePriors(t *testing.T) {
	pop := []float64{40, 50, 50, 60, 70, 70, 80, 90, 100}
	p, err := Percentile(pop, 65)
	require.NoError(t, err)
	assert.InDelta(t, 55.6, p, 0.05)
	assert.InDelta(t, 100.0*5/9, p, 1e-9)
}

func TestPercentile_Empty(t *testing.T) {
	_, err := Percentile(nil, 80)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPercentile_Monotonic(t *testing.T) {
	pop := []float64{12.5, 40, 50, 50, 60, 70, 70, 80, 90, 100, 33.3}
	prev := -1.0
	for pct := 0.0; pct <= 100; pct += 2.5 {
		p, err := Percentile(pop, pct)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, prev, "pct=%v", pct)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 100.0)
		prev = p
	}
}

func TestCompare_Unavailable(t *testing.T) {
	agg := NewAggregator(fakeSource{entries: map[string][]Entry{}})
	_, err := agg.Compare(context.Background(), "new", 90, "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCompare_ExcludesOwnSubmissions(t *testing.T) {
	src := fakeSource{entries: map[string][]Entry{
		"a1": {
			{SubmissionID: "s1", RespondentKey: "user:me", Percentage: 100, SubmittedAt: 1},
		},
	}}
	agg := NewAggregator(src)
	_, err := agg.Compare(context.Background(), "a1", 100, "user:me")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCompare_DedupesByRespondent(t *testing.T) {
	src := fakeSource{entries: map[string][]Entry{
		"a1": {
			{SubmissionID: "s1", RespondentKey: "user:bob", Percentage: 10, SubmittedAt: 1},
			{SubmissionID: "s2", RespondentKey: "user:bob", Percentage: 90, SubmittedAt: 2},
			{SubmissionID: "s3", RespondentKey: "anon:x", Percentage: 40, SubmittedAt: 3},
		},
	}}
	obs := &recordingObserver{}
	agg := NewAggregator(src, WithObserver(obs))
	cmp, err := agg.Compare(context.Background(), "a1", 50, "user:alice")
	require.NoError(t, err)
	assert.Equal(t, 2, cmp.Population)
	assert.Equal(t, 50.0, cmp.Percentile)
	assert.Equal(t, "You scored better than 50.0% of other takers.", cmp.Message)
	assert.Equal(t, []float64{50}, obs.got)
}

func TestCompare_CustomMessage(t *testing.T) {
	src := fakeSource{entries: map[string][]Entry{"a1": {{RespondentKey: "user:x", Percentage: 0}}}}
	agg := NewAggregator(src, WithMessage(func(p float64) string { return "top" }))
	cmp, err := agg.Compare(context.Background(), "a1", 10, "")
	require.NoError(t, err)
	assert.Equal(t, "top", cmp.Message)
	assert.Equal(t, 100.0, cmp.Percentile)
}

func TestCompare_SourceError(t *testing.T) {
	boom := errors.New("db down")
	agg := NewAggregator(fakeSource{err: boom})
	_, err := agg.Compare(context.Background(), "a1", 10, "")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
