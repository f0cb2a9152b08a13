// Package attempt implements the timed exam-taking state machine: answer
// tracking, the one-second countdown, submit validation and confirmation, and
// the forced submission when time runs out.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/notify"
	"github.com/stemsi/exam-portal/internal/result"
)

// Domain errors.
var (
	ErrWrongPhase       = errors.New("action not allowed in the current phase")
	ErrClosed           = errors.New("attempt is closed")
	ErrUnknownQuestion  = errors.New("question is not part of this exam")
	ErrUnknownOption    = errors.New("option is not offered by this question")
	ErrInvalidAnswer    = errors.New("answer key is required")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrInvalidExam      = errors.New("exam has no usable duration")
	ErrExpired          = errors.New("time is up, answers are final")
)

// UnansweredError is returned by RequestSubmit when questions are still open.
// The attempt stays in progress and a warning has already been shown.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d question(s) not answered", e.Count)
}

// Trigger names what started a submission.
type Trigger string

const (
	TriggerConfirmed Trigger = "confirmed"
	TriggerForced    Trigger = "forced"
)

const tickInterval = time.Second

// Backend is the school API as seen by an attempt.
type Backend interface {
	FetchExam(ctx context.Context, examID model.ID, req model.RequesterContext) (*model.Exam, error)
	SubmitExam(ctx context.Context, examID, studentID model.ID, answers []model.SubmissionAnswer) error
}

// Journal records attempt events. Record must be safe for concurrent use.
type Journal interface {
	Record(ctx context.Context, ev model.AttemptEvent)
}

// Deps are the collaborators of an attempt.
type Deps struct {
	Backend   Backend
	Scheduler Scheduler
	Notifier  notify.Notifier
	Navigator notify.Navigator
	// Journal is optional.
	Journal Journal
	// OnChange receives a snapshot after every state change. It is called with
	// the attempt locked, so it must not block or call back into the attempt.
	OnChange   func(State)
	RetryDelay time.Duration
	// DonePath is where the shell goes after a successful submission.
	DonePath string
	Log      zerolog.Logger
}

// Attempt is one student's exam-taking session. All methods are safe for
// concurrent use; every state update happens under one mutex.
type Attempt struct {
	id      uuid.UUID
	examID  model.ID
	student model.Identity
	deps    Deps
	log     zerolog.Logger

	mu        sync.Mutex
	phase     Phase
	closed    bool
	exam      *model.Exam
	order     []model.ID
	questions map[model.ID]QuestionState
	answers   map[model.ID]string
	completed map[model.ID]struct{}
	remaining int
	ctx       context.Context

	ticker  Task
	tickGen uint64
	retry   Task
}

// New creates an attempt in the Loading phase.
func New(examID model.ID, student model.Identity, deps Deps) *Attempt {
	if deps.Scheduler == nil {
		deps.Scheduler = TimeScheduler{}
	}
	if deps.RetryDelay <= 0 {
		deps.RetryDelay = 5 * time.Second
	}
	if deps.DonePath == "" {
		deps.DonePath = "/exams"
	}
	id := uuid.New()
	return &Attempt{
		id:        id,
		examID:    examID,
		student:   student,
		deps:      deps,
		log:       deps.Log.With().Str("attempt_id", id.String()).Str("exam_id", examID.String()).Str("student_id", student.ID).Logger(),
		phase:     PhaseLoading,
		answers:   make(map[model.ID]string),
		completed: make(map[model.ID]struct{}),
		questions: make(map[model.ID]QuestionState),
		ctx:       context.Background(),
	}
}

// ID returns the attempt identifier.
func (a *Attempt) ID() uuid.UUID { return a.id }

// ExamID returns the exam being attempted.
func (a *Attempt) ExamID() model.ID { return a.examID }

// StudentID returns the acting student.
func (a *Attempt) StudentID() model.ID { return model.ID(a.student.ID) }

// Load fetches the exam and moves to InProgress with a full clock. On failure
// the user is notified and sent back; the attempt never reaches InProgress.
func (a *Attempt) Load(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.phase != PhaseLoading {
		a.mu.Unlock()
		return ErrWrongPhase
	}
	a.mu.Unlock()

	exam, err := a.deps.Backend.FetchExam(ctx, a.examID, model.RequesterContext{
		StudentID: model.ID(a.student.ID),
		Role:      a.student.Role,
	})
	if err == nil && exam.DurationMinutes <= 0 {
		err = ErrInvalidExam
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		a.deps.Notifier.Notify(notify.Notification{
			Level:       notify.LevelError,
			Title:       "Failed to load exam",
			Description: err.Error(),
		})
		a.deps.Navigator.Back()
		a.mu.Unlock()
		a.log.Warn().Err(err).Msg("Exam load failed")
		return fmt.Errorf("load exam: %w", err)
	}

	a.exam = exam
	a.ctx = context.WithoutCancel(ctx)
	a.order = make([]model.ID, 0, len(exam.Questions))
	for _, ref := range exam.Questions {
		qs := QuestionState{ID: ref.ID(), Options: []model.Option{}}
		if q, ok := ref.Resolved(); ok {
			qs.Content = q.Content
			qs.Options = result.ParseOptions(q.Options, a.log.With().Str("question_id", q.ID.String()).Logger())
		}
		if _, dup := a.questions[qs.ID]; dup {
			continue
		}
		a.order = append(a.order, qs.ID)
		a.questions[qs.ID] = qs
	}
	a.remaining = exam.DurationMinutes * 60
	a.phase = PhaseInProgress
	a.startTickerLocked()
	a.changedLocked()
	remaining := a.remaining
	a.mu.Unlock()

	a.log.Info().Int("questions", len(a.order)).Int("remaining_seconds", remaining).Msg("Attempt started")
	a.record(model.AttemptEventStarted, "", "", remaining, "")
	return nil
}

// Answer records key as the selection for questionID. Re-selecting the same
// key is a no-op; a different key replaces the previous one. Once the clock
// reaches zero the answers are frozen, even while a forced retry is pending.
func (a *Attempt) Answer(questionID model.ID, key string) error {
	a.mu.Lock()
	if err := a.checkLocked(PhaseInProgress); err != nil {
		a.mu.Unlock()
		return err
	}
	if a.remaining == 0 {
		a.mu.Unlock()
		return ErrExpired
	}
	q, ok := a.questions[questionID]
	if !ok {
		a.mu.Unlock()
		return ErrUnknownQuestion
	}
	if key == "" {
		a.mu.Unlock()
		return ErrInvalidAnswer
	}
	if len(q.Options) > 0 && !result.HasOption(q.Options, key) {
		a.mu.Unlock()
		return ErrUnknownOption
	}
	if prev, ok := a.answers[questionID]; ok && prev == key {
		a.mu.Unlock()
		return nil
	}
	a.answers[questionID] = key
	a.completed[questionID] = struct{}{}
	a.changedLocked()
	remaining := a.remaining
	a.mu.Unlock()

	a.record(model.AttemptEventAnswered, questionID, key, remaining, "")
	return nil
}

// RequestSubmit validates that every question has an answer and, if so, asks
// for confirmation. With questions still open it warns and stays in progress,
// returning an *UnansweredError. Once time has run out it submits directly.
func (a *Attempt) RequestSubmit(ctx context.Context) error {
	a.mu.Lock()
	if a.phase == PhaseSubmitting {
		a.mu.Unlock()
		return ErrSubmitInProgress
	}
	if err := a.checkLocked(PhaseInProgress); err != nil {
		a.mu.Unlock()
		return err
	}
	if a.remaining == 0 {
		a.mu.Unlock()
		return a.submit(ctx, TriggerForced)
	}

	if open := len(a.order) - len(a.answers); open > 0 {
		a.deps.Notifier.Notify(notify.Notification{
			Level:       notify.LevelWarning,
			Title:       "Incomplete answers",
			Description: fmt.Sprintf("%d question(s) have not been answered yet.", open),
		})
		remaining := a.remaining
		a.mu.Unlock()
		a.record(model.AttemptEventSubmitWarned, "", "", remaining, fmt.Sprintf("unanswered=%d", open))
		return &UnansweredError{Count: open}
	}

	a.phase = PhaseConfirmingSubmit
	a.changedLocked()
	remaining := a.remaining
	a.mu.Unlock()

	a.record(model.AttemptEventSubmitRequested, "", "", remaining, "")
	return nil
}

// CancelSubmit closes the confirmation prompt.
func (a *Attempt) CancelSubmit() error {
	a.mu.Lock()
	if err := a.checkLocked(PhaseConfirmingSubmit); err != nil {
		a.mu.Unlock()
		return err
	}
	a.phase = PhaseInProgress
	a.changedLocked()
	remaining := a.remaining
	a.mu.Unlock()

	a.record(model.AttemptEventSubmitCancelled, "", "", remaining, "")
	return nil
}

// ConfirmSubmit sends the answers after the user confirmed.
func (a *Attempt) ConfirmSubmit(ctx context.Context) error {
	a.mu.Lock()
	if a.phase == PhaseSubmitting {
		a.mu.Unlock()
		return ErrSubmitInProgress
	}
	if err := a.checkLocked(PhaseConfirmingSubmit); err != nil {
		a.mu.Unlock()
		return err
	}
	a.mu.Unlock()
	return a.submit(ctx, TriggerConfirmed)
}

// Close unmounts the attempt: the countdown and any pending retry stop and no
// later callback touches the state. An in-flight submission still completes
// on the school API, but its outcome is only logged.
func (a *Attempt) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.stopTickerLocked()
	a.stopRetryLocked()
	phase, remaining := a.phase, a.remaining
	a.mu.Unlock()

	a.log.Debug().Str("phase", string(phase)).Msg("Attempt closed")
	a.record(model.AttemptEventClosed, "", "", remaining, string(phase))
}

// Snapshot returns the current state.
func (a *Attempt) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// submit is the single submission operation shared by the confirmed and the
// forced path.
func (a *Attempt) submit(ctx context.Context, trigger Trigger) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	switch a.phase {
	case PhaseSubmitting:
		a.mu.Unlock()
		return ErrSubmitInProgress
	case PhaseInProgress, PhaseConfirmingSubmit:
	default:
		a.mu.Unlock()
		return ErrWrongPhase
	}
	a.phase = PhaseSubmitting
	a.stopTickerLocked()
	a.stopRetryLocked()
	payload := a.payloadLocked()
	a.changedLocked()
	a.mu.Unlock()

	start := time.Now()
	err := a.deps.Backend.SubmitExam(context.WithoutCancel(ctx), a.examID, model.ID(a.student.ID), payload)
	metrics.Submission(string(trigger), err == nil, time.Since(start))

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.log.Info().Err(err).Str("trigger", string(trigger)).Msg("Submission settled after unmount")
		return ErrClosed
	}

	if err == nil {
		a.phase = PhaseDone
		a.deps.Notifier.Notify(notify.Notification{
			Level:       notify.LevelSuccess,
			Title:       "Exam submitted",
			Description: "Your answers have been submitted.",
		})
		a.changedLocked()
		a.deps.Navigator.Replace(a.deps.DonePath)
		remaining := a.remaining
		a.mu.Unlock()

		a.log.Info().Str("trigger", string(trigger)).Int("answers", len(payload)).Msg("Exam submitted")
		a.record(model.AttemptEventSubmitted, "", "", remaining, string(trigger))
		return nil
	}

	a.phase = PhaseInProgress
	a.deps.Notifier.Notify(notify.Notification{
		Level:       notify.LevelError,
		Title:       "Submission failed",
		Description: err.Error(),
	})
	if a.remaining == 0 {
		a.retry = a.deps.Scheduler.After(a.deps.RetryDelay, a.retryForced)
	} else {
		a.startTickerLocked()
	}
	a.changedLocked()
	remaining := a.remaining
	a.mu.Unlock()

	a.log.Warn().Err(err).Str("trigger", string(trigger)).Msg("Submission failed")
	a.record(model.AttemptEventSubmitFailed, "", "", remaining, err.Error())
	return fmt.Errorf("submit exam: %w", err)
}

func (a *Attempt) retryForced() {
	if err := a.submit(a.ctx, TriggerForced); err != nil && !errors.Is(err, ErrClosed) {
		a.log.Debug().Err(err).Msg("Forced retry did not complete")
	}
}

// tick is the countdown callback. gen pins it to the ticker that scheduled it
// so a late tick from a stopped ticker is ignored.
func (a *Attempt) tick(gen uint64) {
	a.mu.Lock()
	if a.closed || gen != a.tickGen || a.ticker == nil || !a.phase.counting() {
		a.mu.Unlock()
		return
	}
	if a.remaining > 0 {
		a.remaining--
	}
	a.changedLocked()
	if a.remaining > 0 {
		a.mu.Unlock()
		return
	}
	a.stopTickerLocked()
	a.mu.Unlock()

	a.log.Info().Msg("Time is up, submitting")
	a.record(model.AttemptEventExpired, "", "", 0, "")
	if err := a.submit(a.ctx, TriggerForced); err != nil && !errors.Is(err, ErrClosed) {
		a.log.Debug().Err(err).Msg("Forced submission did not complete")
	}
}

func (a *Attempt) startTickerLocked() {
	a.stopTickerLocked()
	a.tickGen++
	gen := a.tickGen
	a.ticker = a.deps.Scheduler.Every(tickInterval, func() { a.tick(gen) })
}

func (a *Attempt) stopTickerLocked() {
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
	a.tickGen++
}

func (a *Attempt) stopRetryLocked() {
	if a.retry != nil {
		a.retry.Stop()
		a.retry = nil
	}
}

func (a *Attempt) checkLocked(want Phase) error {
	if a.closed {
		return ErrClosed
	}
	if a.phase != want {
		return ErrWrongPhase
	}
	return nil
}

// payloadLocked lists answered questions in exam order. Unanswered questions
// are omitted.
func (a *Attempt) payloadLocked() []model.SubmissionAnswer {
	out := make([]model.SubmissionAnswer, 0, len(a.answers))
	for _, id := range a.order {
		if key, ok := a.answers[id]; ok {
			out = append(out, model.SubmissionAnswer{QuestionID: id, SelectedKey: key})
		}
	}
	return out
}

func (a *Attempt) changedLocked() {
	if a.deps.OnChange != nil {
		a.deps.OnChange(a.snapshotLocked())
	}
}

func (a *Attempt) snapshotLocked() State {
	s := State{
		AttemptID:        a.id,
		ExamID:           a.examID,
		Phase:            a.phase,
		RemainingSeconds: a.remaining,
		Clock:            FormatClock(a.remaining),
		Answers:          make(map[model.ID]string, len(a.answers)),
		Completed:        make([]model.ID, 0, len(a.completed)),
		TotalQuestions:   len(a.order),
		Progress:         Progress(len(a.completed), len(a.order)),
		Questions:        make([]QuestionState, 0, len(a.order)),
		CanSubmit:        a.phase == PhaseInProgress && !a.closed,
	}
	if a.exam != nil {
		s.ExamName = a.exam.Name
	}
	for k, v := range a.answers {
		s.Answers[k] = v
	}
	for _, id := range a.order {
		q := a.questions[id]
		_, q.Completed = a.completed[id]
		q.SelectedKey = a.answers[id]
		if q.Completed {
			s.Completed = append(s.Completed, id)
		}
		s.Questions = append(s.Questions, q)
	}
	if a.phase == PhaseConfirmingSubmit {
		s.Confirm = &ConfirmPrompt{Message: "Submit your answers? You cannot change them afterwards."}
		if a.remaining > 0 {
			s.Confirm.TimeLeft = FormatClock(a.remaining)
		}
	}
	return s
}

func (a *Attempt) record(kind model.AttemptEventKind, questionID model.ID, key string, remaining int, detail string) {
	if a.deps.Journal == nil {
		return
	}
	a.deps.Journal.Record(a.ctx, model.AttemptEvent{
		AttemptID:        a.id,
		ExamID:           a.examID,
		StudentID:        model.ID(a.student.ID),
		Kind:             kind,
		QuestionID:       questionID,
		SelectedKey:      key,
		RemainingSeconds: remaining,
		Detail:           detail,
		OccurredAt:       time.Now().UTC(),
	})
}
