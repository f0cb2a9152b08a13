package result

import (
	"errors"
	"math"
	"strconv"

	"github.com/stemsi/exam-portal/internal/model"
)

// ErrNoResult is returned when an exam has no usable grading summary, including
// a summary with zero questions.
var ErrNoResult = errors.New("no result available")

// Score is the derived grade of one graded exam.
type Score struct {
	TotalCorrect  int     `json:"total_correct"`
	TotalQuestion int     `json:"total_question"`
	Percentage    float64 `json:"percentage"`
	OutOfTen      float64 `json:"out_of_ten"`
}

// Compute derives the percentage and the score out of ten.
func Compute(r *model.ResultSummary) (Score, error) {
	if r == nil || r.TotalQuestion <= 0 {
		return Score{}, ErrNoResult
	}
	correct := float64(r.TotalCorrect)
	total := float64(r.TotalQuestion)
	// Multiply before dividing so whole results stay exact (7/10 → 7, not 7.000000000000001).
	return Score{
		TotalCorrect:  r.TotalCorrect,
		TotalQuestion: r.TotalQuestion,
		Percentage:    correct * 100 / total,
		OutOfTen:      correct * 10 / total,
	}, nil
}

// Format renders whole numbers without decimals and everything else rounded to
// exactly two decimal places.
func Format(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}
