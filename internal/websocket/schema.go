package websocket

import (
	"github.com/stemsi/exam-portal/internal/notify"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer        Action = "answer"
	ActionRequestSubmit Action = "request_submit"
	ActionConfirmSubmit Action = "confirm_submit"
	ActionCancelSubmit  Action = "cancel_submit"
	ActionSnapshot      Action = "snapshot"
	ActionPing          Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest selects an option for one question.
type AnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	Key        string `json:"selected_answer"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState        Event = "state"
	EventNotification Event = "notification"
	EventNavigation   Event = "navigation"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// StateResponse carries a full attempt snapshot.
type StateResponse struct {
	Event Event `json:"event"`
	State any   `json:"state"`
}

// NotificationResponse is a toast for the exam-taking screen.
type NotificationResponse struct {
	Event        Event               `json:"event"`
	Notification notify.Notification `json:"notification"`
}

// NavigationResponse asks the shell to leave the exam-taking screen.
type NavigationResponse struct {
	Event      Event             `json:"event"`
	Navigation notify.Navigation `json:"navigation"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// FromStream converts a stream event to its wire form. ok is false for
// unknown event types.
func FromStream(e notify.Event) (v any, ok bool) {
	switch e.Type {
	case notify.EventState:
		return StateResponse{Event: EventState, State: e.State}, true
	case notify.EventNotification:
		if e.Notification != nil {
			return NotificationResponse{Event: EventNotification, Notification: *e.Notification}, true
		}
	case notify.EventNavigation:
		if e.Navigation != nil {
			return NavigationResponse{Event: EventNavigation, Navigation: *e.Navigation}, true
		}
	}
	return nil, false
}
