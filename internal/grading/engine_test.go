package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func letters(n int) []Q {
	qs := make([]Q, n)
	for i := range qs {
		qs[i] = Q{Options: []string{"opt a", "opt b", "opt c", "opt d"}, Correct: Label(i % 4)}
	}
	return qs
}

func newGrader(t *testing.T, opts ...Option) *Grader {
	t.Helper()
	g, err := NewGrader(opts...)
	require.NoError(t, err)
	return g
}

func TestGrade_FourQuestionScenario(t *testing.T) {
	g := newGrader(t)
	res := g.Grade(KindExam, letters(4), map[int]string{0: "A", 1: "B", 2: "X", 3: "D"})

	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 75.0, res.Percentage)
	assert.Equal(t, GradeA, res.Grade)
	assert.Equal(t, "Excellent.", res.Remark)
	assert.Equal(t, []bool{true, true, false, true}, res.Correct)
}

func TestGrade_NoQuestions(t *testing.T) {
	g := newGrader(t)
	for _, kind := range []Kind{KindExam, KindQuiz} {
		res := g.Grade(kind, nil, map[int]string{0: "A", 3: "B"})
		assert.Equal(t, 0, res.Score)
		assert.Equal(t, 0, res.Total)
		assert.Equal(t, GradeNA, res.Grade)
		assert.Equal(t, "No questions graded.", res.Remark)
	}
}

func TestGrade_IgnoresOutOfRangeAndMissing(t *testing.T) {
	g := newGrader(t)
	res := g.Grade(KindExam, letters(2), map[int]string{-1: "A", 0: "A", 7: "B", 99: "C"})
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.Total)

	empty := g.Grade(KindExam, letters(3), nil)
	assert.Equal(t, 0, empty.Score)
	assert.Equal(t, GradeF, empty.Grade)
}

func TestGrade_ScoreBounds(t *testing.T) {
	g := newGrader(t)
	qs := letters(10)
	inputs := []map[int]string{
		nil,
		{},
		{0: "A", 1: "B", 2: "C", 3: "D", 4: "A", 5: "B", 6: "C", 7: "D", 8: "A", 9: "B"},
		{0: "Z", 1: "", 2: "   ", 3: "opt d", 11: "A"},
	}
	for _, in := range inputs {
		res := g.Grade(KindQuiz, qs, in)
		assert.GreaterOrEqual(t, res.Score, 0)
		assert.LessOrEqual(t, res.Score, res.Total)
	}
}

func TestGrade_Deterministic(t *testing.T) {
	g := newGrader(t)
	answers := map[int]string{0: "a) opt a", 1: "C", 2: "opt c"}
	first := g.Grade(KindExam, letters(3), answers)
	second := g.Grade(KindExam, letters(3), answers)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Grade, second.Grade)
	assert.Equal(t, first.Remark, second.Remark)
}

func TestGrade_ExamBands(t *testing.T) {
	g := newGrader(t)
	tests := []struct {
		score, total int
		grade        Grade
		remark       string
	}{
		{7, 10, GradeA, "Excellent."},
		{6, 10, GradeB, "Very good."},
		{5, 10, GradeC, "Credit — passed narrowly."},
		{9, 20, GradeD, "Weak pass."},
		{4, 10, GradeE, "Danger zone."},
		{3, 10, GradeF, "Fail."},
		{0, 10, GradeF, "Fail."},
	}
	for _, tt := range tests {
		qs := letters(tt.total)
		answers := map[int]string{}
		for i := 0; i < tt.score; i++ {
			answers[i] = Label(i % 4)
		}
		res := g.Grade(KindExam, qs, answers)
		assert.Equal(t, tt.grade, res.Grade, "%d/%d", tt.score, tt.total)
		assert.Equal(t, tt.remark, res.Remark, "%d/%d", tt.score, tt.total)
	}
}

func TestGrade_QuizCurveIsLenient(t *testing.T) {
	g := newGrader(t)
	answers := map[int]string{}
	for i := 0; i < 13; i++ {
		answers[i] = Label(i % 4)
	}
	exam := g.Grade(KindExam, letters(20), answers)
	quiz := g.Grade(KindQuiz, letters(20), answers)
	assert.Equal(t, 65.0, exam.Percentage)
	assert.Equal(t, GradeB, exam.Grade)
	assert.Equal(t, GradeA, quiz.Grade)
}

func TestGrade_CustomBanding(t *testing.T) {
	custom := Banding{
		{Min: 0, Grade: GradeF, Remark: "no"},
		{Min: 50, Grade: GradeA, Remark: "yes"},
	}
	g := newGrader(t, WithBanding(KindQuiz, custom))
	res := g.Grade(KindQuiz, letters(2), map[int]string{0: "A"})
	assert.Equal(t, GradeA, res.Grade)
	assert.Equal(t, "yes", res.Remark)
}

func TestNewGrader_RejectsInvalidBanding(t *testing.T) {
	_, err := NewGrader(WithBanding(KindExam, Banding{{Min: 120, Grade: GradeA}}))
	require.Error(t, err)
	_, err = NewGrader(WithBanding(KindExam, Banding{{Min: 10, Grade: GradeNA}}))
	require.Error(t, err)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(0, 0))
	assert.Equal(t, 45.0, Percentage(9, 20))
	assert.Equal(t, 70.0, Percentage(7, 10))
	assert.InDelta(t, 66.67, Percentage(2, 3), 0.01)
}
