package model

// Ref is a lightweight reference to a class or subject.
type Ref struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

// ResultSummary is the per-student grading summary attached to a graded exam.
type ResultSummary struct {
	TotalCorrect  int `json:"total_correct"`
	TotalQuestion int `json:"total_question"`
}

// Exam is one exam instance a student may attempt.
type Exam struct {
	ID              ID             `json:"id"`
	Name            string         `json:"name"`
	DurationMinutes int            `json:"duration"`
	Questions       []QuestionRef  `json:"questions"`
	Class           *Ref           `json:"class,omitempty"`
	Subject         *Ref           `json:"subject,omitempty"`
	Result          *ResultSummary `json:"result,omitempty"`
}

// RequesterContext tells the school API whose perspective an exam is loaded from.
type RequesterContext struct {
	StudentID ID
	Role      Role
}

// SubmissionAnswer is one (question, selected key) pair sent on submit.
type SubmissionAnswer struct {
	QuestionID  ID     `json:"question_id"`
	SelectedKey string `json:"selected_answer"`
}
