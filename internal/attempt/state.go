package attempt

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/stemsi/exam-portal/internal/model"
)

// Phase is the current state of an exam attempt.
type Phase string

const (
	PhaseLoading          Phase = "loading"
	PhaseInProgress       Phase = "in_progress"
	PhaseConfirmingSubmit Phase = "confirming_submit"
	PhaseSubmitting       Phase = "submitting"
	PhaseDone             Phase = "done"
)

// counting reports whether the countdown runs in p.
func (p Phase) counting() bool {
	return p == PhaseInProgress || p == PhaseConfirmingSubmit
}

// QuestionState is one question as shown on the exam-taking screen.
type QuestionState struct {
	ID          model.ID       `json:"id"`
	Content     string         `json:"content,omitempty"`
	Options     []model.Option `json:"options"`
	SelectedKey string         `json:"selected_answer,omitempty"`
	Completed   bool           `json:"completed"`
}

// ConfirmPrompt is shown while the attempt waits for submit confirmation.
type ConfirmPrompt struct {
	Message  string `json:"message"`
	TimeLeft string `json:"time_left,omitempty"`
}

// State is a point-in-time copy of an attempt plus its derived display values.
type State struct {
	AttemptID        uuid.UUID           `json:"attempt_id"`
	ExamID           model.ID            `json:"exam_id"`
	ExamName         string              `json:"exam_name,omitempty"`
	Phase            Phase               `json:"phase"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Clock            string              `json:"clock"`
	Answers          map[model.ID]string `json:"answers"`
	Completed        []model.ID          `json:"completed"`
	TotalQuestions   int                 `json:"total_questions"`
	Progress         float64             `json:"progress"`
	Questions        []QuestionState     `json:"questions"`
	Confirm          *ConfirmPrompt      `json:"confirm,omitempty"`
	CanSubmit        bool                `json:"can_submit"`
}

// FormatClock renders seconds as mm:ss. Minutes are not capped at 59.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Progress is the answered share of questions in percent.
func Progress(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
