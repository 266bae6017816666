package grading

import (
	"fmt"
	"sort"
)

type Grade string

const (
	GradeA  Grade = "A"
	GradeB  Grade = "B"
	GradeC  Grade = "C"
	GradeD  Grade = "D"
	GradeE  Grade = "E"
	GradeF  Grade = "F"
	GradeNA Grade = "N/A"
)

// Valid reports whether g is one of the fixed grade values.
func (g Grade) Valid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeE, GradeF, GradeNA:
		return true
	}
	return false
}

const remarkNoQuestions = "No questions graded."

// Band awards Grade/Remark to any percentage >= Min.
type Band struct {
	Min    float64 `json:"min" mapstructure:"min"`
	Grade  Grade   `json:"grade" mapstructure:"grade"`
	Remark string  `json:"remark" mapstructure:"remark"`
}

// Banding is an ordered grade curve, highest threshold first.
type Banding []Band

// ExamBanding is the stricter curve used for timed exams.
var ExamBanding = Banding{
	{Min: 70, Grade: GradeA, Remark: "Excellent."},
	{Min: 60, Grade: GradeB, Remark: "Very good."},
	{Min: 50, Grade: GradeC, Remark: "Credit — passed narrowly."},
	{Min: 45, Grade: GradeD, Remark: "Weak pass."},
	{Min: 40, Grade: GradeE, Remark: "Danger zone."},
	{Min: 0, Grade: GradeF, Remark: "Fail."},
}

// QuizBanding is the more lenient practice-quiz curve.
var QuizBanding = Banding{
	{Min: 65, Grade: GradeA, Remark: "Excellent."},
	{Min: 55, Grade: GradeB, Remark: "Very good."},
	{Min: 45, Grade: GradeC, Remark: "Good."},
	{Min: 40, Grade: GradeD, Remark: "Fair."},
	{Min: 35, Grade: GradeE, Remark: "Needs improvement."},
	{Min: 0, Grade: GradeF, Remark: "Fail."},
}

// Normalized returns a copy sorted by descending threshold.
func (b Banding) Normalized() Banding {
	out := make(Banding, len(b))
	copy(out, b)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Min > out[j].Min })
	return out
}

func (b Banding) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("banding: no bands")
	}
	for _, band := range b {
		if !band.Grade.Valid() || band.Grade == GradeNA {
			return fmt.Errorf("banding: invalid grade %q", band.Grade)
		}
		if band.Min < 0 || band.Min > 100 {
			return fmt.Errorf("banding: threshold %v out of range", band.Min)
		}
	}
	return nil
}

// Classify maps a percentage to its grade and remark. Percentages below every
// threshold fall to F.
func (b Banding) Classify(pct float64) (Grade, string) {
	for _, band := range b {
		if pct >= band.Min {
			return band.Grade, band.Remark
		}
	}
	return GradeF, "Fail."
}
