package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Question is one exam question. SelectedKey and CorrectKey are only set once the
// exam has been graded.
type Question struct {
	ID          ID              `json:"id"`
	Content     string          `json:"content"`
	Options     json.RawMessage `json:"options"`
	SelectedKey *string         `json:"selected_answer,omitempty"`
	CorrectKey  *string         `json:"correct_answer,omitempty"`
}

// Option is one answer option with a stable key and a display value.
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QuestionRef is either an unresolved question identifier or a fully loaded
// question. Callers must go through Resolved to reach the question body.
type QuestionRef struct {
	id       ID
	question *Question
}

// UnresolvedRef builds a reference holding only an identifier.
func UnresolvedRef(id ID) QuestionRef {
	return QuestionRef{id: id}
}

// ResolvedRef builds a reference holding a full question.
func ResolvedRef(q Question) QuestionRef {
	return QuestionRef{id: q.ID, question: &q}
}

// ID returns the question identifier for both variants.
func (r QuestionRef) ID() ID { return r.id }

// Resolved returns the question body when the reference carries one.
func (r QuestionRef) Resolved() (Question, bool) {
	if r.question == nil {
		return Question{}, false
	}
	return *r.question, true
}

// UnmarshalJSON decodes a bare identifier (string or number) as Unresolved and
// an object as Resolved.
func (r *QuestionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var q Question
		if err := json.Unmarshal(data, &q); err != nil {
			return err
		}
		if q.ID == "" {
			return errors.New("question object without id")
		}
		*r = ResolvedRef(q)
		return nil
	}
	var id ID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id == "" {
		return errors.New("empty question reference")
	}
	*r = UnresolvedRef(id)
	return nil
}

// MarshalJSON writes the variant back in the shape it was decoded from.
func (r QuestionRef) MarshalJSON() ([]byte, error) {
	if r.question != nil {
		return json.Marshal(r.question)
	}
	return json.Marshal(string(r.id))
}
