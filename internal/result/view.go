// Package result builds the read-only exam detail and graded result views.
package result

import (
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/model"
)

// QuestionView is one question as rendered on the detail/result screens.
type QuestionView struct {
	ID          model.ID       `json:"id"`
	Resolved    bool           `json:"resolved"`
	Content     string         `json:"content,omitempty"`
	Options     []model.Option `json:"options"`
	SelectedKey string         `json:"selected_answer,omitempty"`
	CorrectKey  string         `json:"correct_answer,omitempty"`
	Correct     *bool          `json:"correct,omitempty"`
}

// ScoreView is the formatted score block.
type ScoreView struct {
	TotalCorrect  int    `json:"total_correct"`
	TotalQuestion int    `json:"total_question"`
	Percentage    string `json:"percentage"`
	OutOfTen      string `json:"out_of_ten"`
}

// ExamView is the read-only rendering of an exam.
type ExamView struct {
	ID              model.ID       `json:"id"`
	Name            string         `json:"name"`
	DurationMinutes int            `json:"duration"`
	Class           *model.Ref     `json:"class,omitempty"`
	Subject         *model.Ref     `json:"subject,omitempty"`
	Questions       []QuestionView `json:"questions"`
	Score           *ScoreView     `json:"score,omitempty"`
}

// BuildExamView renders exam. Score is nil when the exam has no usable result.
func BuildExamView(exam *model.Exam, log zerolog.Logger) ExamView {
	v := ExamView{
		ID:              exam.ID,
		Name:            exam.Name,
		DurationMinutes: exam.DurationMinutes,
		Class:           exam.Class,
		Subject:         exam.Subject,
		Questions:       make([]QuestionView, 0, len(exam.Questions)),
	}

	for _, ref := range exam.Questions {
		q, ok := ref.Resolved()
		if !ok {
			v.Questions = append(v.Questions, QuestionView{ID: ref.ID(), Options: []model.Option{}})
			continue
		}
		qv := QuestionView{
			ID:       q.ID,
			Resolved: true,
			Content:  q.Content,
			Options:  ParseOptions(q.Options, log.With().Str("question_id", q.ID.String()).Logger()),
		}
		if q.SelectedKey != nil {
			qv.SelectedKey = *q.SelectedKey
		}
		if q.CorrectKey != nil {
			qv.CorrectKey = *q.CorrectKey
			correct := q.SelectedKey != nil && *q.SelectedKey == *q.CorrectKey
			qv.Correct = &correct
		}
		v.Questions = append(v.Questions, qv)
	}

	if s, err := Compute(exam.Result); err == nil {
		v.Score = &ScoreView{
			TotalCorrect:  s.TotalCorrect,
			TotalQuestion: s.TotalQuestion,
			Percentage:    Format(s.Percentage),
			OutOfTen:      Format(s.OutOfTen),
		}
	}
	return v
}
