package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/model"
)

func TestComputeAndFormat(t *testing.T) {
	tests := []struct {
		correct, total int
		outOfTen       string
		percentage     string
	}{
		{7, 10, "7", "70"},
		{5, 7, "7.14", "71.43"},
		{0, 4, "0", "0"},
		{3, 3, "10", "100"},
		{1, 3, "3.33", "33.33"},
	}

	for _, tt := range tests {
		s, err := Compute(&model.ResultSummary{TotalCorrect: tt.correct, TotalQuestion: tt.total})
		require.NoError(t, err)
		assert.Equal(t, tt.outOfTen, Format(s.OutOfTen), "%d/%d out of ten", tt.correct, tt.total)
		assert.Equal(t, tt.percentage, Format(s.Percentage), "%d/%d percentage", tt.correct, tt.total)
	}
}

func TestComputeExactWholeValue(t *testing.T) {
	s, err := Compute(&model.ResultSummary{TotalCorrect: 7, TotalQuestion: 10})
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.OutOfTen)
	assert.Equal(t, 70.0, s.Percentage)
}

func TestComputeNoResult(t *testing.T) {
	_, err := Compute(nil)
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = Compute(&model.ResultSummary{TotalCorrect: 0, TotalQuestion: 0})
	assert.ErrorIs(t, err, ErrNoResult)
}
