package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptEventKind enumerates journal entries emitted by an exam attempt.
type AttemptEventKind string

const (
	AttemptEventStarted         AttemptEventKind = "started"
	AttemptEventAnswered        AttemptEventKind = "answered"
	AttemptEventSubmitRequested AttemptEventKind = "submit_requested"
	AttemptEventSubmitWarned    AttemptEventKind = "submit_warned"
	AttemptEventSubmitCancelled AttemptEventKind = "submit_cancelled"
	AttemptEventExpired         AttemptEventKind = "expired"
	AttemptEventSubmitted       AttemptEventKind = "submitted"
	AttemptEventSubmitFailed    AttemptEventKind = "submit_failed"
	AttemptEventClosed          AttemptEventKind = "closed"
)

// AttemptEvent is one journal entry of an exam attempt.
type AttemptEvent struct {
	ID               int64            `json:"id,omitempty"`
	AttemptID        uuid.UUID        `json:"attempt_id"`
	ExamID           ID               `json:"exam_id"`
	StudentID        ID               `json:"student_id"`
	Kind             AttemptEventKind `json:"kind"`
	QuestionID       ID               `json:"question_id,omitempty"`
	SelectedKey      string           `json:"selected_key,omitempty"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Detail           string           `json:"detail,omitempty"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

// Valid reports whether k is one of the known kinds.
func (k AttemptEventKind) Valid() bool {
	switch k {
	case AttemptEventStarted, AttemptEventAnswered, AttemptEventSubmitRequested,
		AttemptEventSubmitWarned, AttemptEventSubmitCancelled, AttemptEventExpired,
		AttemptEventSubmitted, AttemptEventSubmitFailed, AttemptEventClosed:
		return true
	}
	return false
}

// AttemptEventQuery filters the journal listing of an exam.
type AttemptEventQuery struct {
	StudentID string `form:"student_id" json:"student_id" binding:"omitempty,max=64"`
	Kind      string `form:"kind" json:"kind" binding:"omitempty,event_kind"`
	Page      int    `form:"page" json:"page" binding:"omitempty,min=1"`
	PerPage   int    `form:"per_page" json:"per_page" binding:"omitempty,min=1,max=200"`
}
