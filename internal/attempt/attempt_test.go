package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/notify"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type fakeTask struct {
	s       *fakeScheduler
	fn      func()
	stopped bool
}

func (t *fakeTask) Stop() {
	t.s.mu.Lock()
	t.stopped = true
	t.s.mu.Unlock()
}

type fakeScheduler struct {
	mu    sync.Mutex
	every []*fakeTask
	after []*fakeTask
}

func (s *fakeScheduler) Every(_ time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTask{s: s, fn: fn}
	s.every = append(s.every, t)
	return t
}

func (s *fakeScheduler) After(_ time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTask{s: s, fn: fn}
	s.after = append(s.after, t)
	return t
}

func (s *fakeScheduler) active(list []*fakeTask) []*fakeTask {
	var out []*fakeTask
	for _, t := range list {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// Tick advances every running ticker n times.
func (s *fakeScheduler) Tick(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		tasks := s.active(s.every)
		s.mu.Unlock()
		for _, t := range tasks {
			t.fn()
		}
	}
}

// FireAfter runs pending one-shot tasks.
func (s *fakeScheduler) FireAfter() int {
	s.mu.Lock()
	tasks := s.active(s.after)
	for _, t := range tasks {
		t.stopped = true
	}
	s.mu.Unlock()
	for _, t := range tasks {
		t.fn()
	}
	return len(tasks)
}

func (s *fakeScheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active(s.every))
}

func (s *fakeScheduler) Established() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.every)
}

type fakeBackend struct {
	mu        sync.Mutex
	exam      *model.Exam
	fetchErr  error
	submitErr []error
	submits   [][]model.SubmissionAnswer
	started   chan struct{}
	release   chan struct{}
}

func (b *fakeBackend) FetchExam(_ context.Context, _ model.ID, _ model.RequesterContext) (*model.Exam, error) {
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	e := *b.exam
	return &e, nil
}

func (b *fakeBackend) SubmitExam(_ context.Context, _, _ model.ID, answers []model.SubmissionAnswer) error {
	if b.started != nil {
		b.started <- struct{}{}
	}
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits = append(b.submits, answers)
	if len(b.submitErr) > 0 {
		err := b.submitErr[0]
		b.submitErr = b.submitErr[1:]
		return err
	}
	return nil
}

func (b *fakeBackend) Submits() [][]model.SubmissionAnswer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]model.SubmissionAnswer(nil), b.submits...)
}

type recorder struct {
	mu            sync.Mutex
	notifications []notify.Notification
	navigations   []notify.Navigation
	states        []State
	events        []model.AttemptEventKind
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recorder) Replace(path string) { r.nav(notify.Navigation{Kind: notify.NavigateReplace, Path: path}) }
func (r *recorder) Push(path string)    { r.nav(notify.Navigation{Kind: notify.NavigatePush, Path: path}) }
func (r *recorder) Back()               { r.nav(notify.Navigation{Kind: notify.NavigateBack}) }

func (r *recorder) nav(n notify.Navigation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations = append(r.navigations, n)
}

func (r *recorder) Record(_ context.Context, ev model.AttemptEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.Kind)
}

func (r *recorder) onChange(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) Notifications() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.notifications...)
}

func (r *recorder) Navigations() []notify.Navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Navigation(nil), r.navigations...)
}

func (r *recorder) StateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) Events() []model.AttemptEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AttemptEventKind(nil), r.events...)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

var student = model.Identity{ID: "s-1", Name: "Siti", Email: "siti@school.test", Role: model.RoleStudent}

func question(id, options string) model.QuestionRef {
	return model.ResolvedRef(model.Question{
		ID:      model.ID(id),
		Content: "Question " + id,
		Options: json.RawMessage(options),
	})
}

func sampleExam(minutes int) *model.Exam {
	return &model.Exam{
		ID:              "e-1",
		Name:            "Physics",
		DurationMinutes: minutes,
		Questions: []model.QuestionRef{
			question("q1", `{"a":"Alpha","b":"Beta"}`),
			question("q2", `[{"key":"a","value":"One"},{"key":"b","value":"Two"}]`),
			model.UnresolvedRef("q3"),
		},
	}
}

type fixture struct {
	attempt *Attempt
	sched   *fakeScheduler
	backend *fakeBackend
	rec     *recorder
}

func newFixture(t *testing.T, exam *model.Exam) *fixture {
	t.Helper()
	f := &fixture{
		sched:   &fakeScheduler{},
		backend: &fakeBackend{exam: exam},
		rec:     &recorder{},
	}
	f.attempt = New("e-1", student, Deps{
		Backend:    f.backend,
		Scheduler:  f.sched,
		Notifier:   f.rec,
		Navigator:  f.rec,
		Journal:    f.rec,
		OnChange:   f.rec.onChange,
		RetryDelay: time.Second,
		Log:        zerolog.Nop(),
	})
	return f
}

func loaded(t *testing.T, minutes int) *fixture {
	t.Helper()
	f := newFixture(t, sampleExam(minutes))
	require.NoError(t, f.attempt.Load(context.Background()))
	return f
}

func answerAll(t *testing.T, a *Attempt) {
	t.Helper()
	require.NoError(t, a.Answer("q1", "a"))
	require.NoError(t, a.Answer("q2", "b"))
	require.NoError(t, a.Answer("q3", "c"))
}

func expectedPayload() []model.SubmissionAnswer {
	return []model.SubmissionAnswer{
		{QuestionID: "q1", SelectedKey: "a"},
		{QuestionID: "q2", SelectedKey: "b"},
		{QuestionID: "q3", SelectedKey: "c"},
	}
}

// ─── Load ───────────────────────────────────────────────────────────────────

func TestLoad_StartsCountdown(t *testing.T) {
	f := loaded(t, 90)

	s := f.attempt.Snapshot()
	assert.Equal(t, PhaseInProgress, s.Phase)
	assert.Equal(t, 5400, s.RemainingSeconds)
	assert.Equal(t, "90:00", s.Clock)
	assert.Equal(t, "Physics", s.ExamName)
	assert.Equal(t, 3, s.TotalQuestions)
	assert.True(t, s.CanSubmit)
	assert.Equal(t, 1, f.sched.Established())
	assert.Equal(t, []model.Option{{Key: "a", Value: "Alpha"}, {Key: "b", Value: "Beta"}}, s.Questions[0].Options)
	assert.Empty(t, s.Questions[2].Options)
	assert.Equal(t, []model.AttemptEventKind{model.AttemptEventStarted}, f.rec.Events())
}

func TestLoad_FailureNotifiesAndGoesBack(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.fetchErr = errors.New("exam not found")

	err := f.attempt.Load(context.Background())
	require.Error(t, err)

	assert.Equal(t, PhaseLoading, f.attempt.Snapshot().Phase)
	require.Len(t, f.rec.Notifications(), 1)
	assert.Equal(t, notify.LevelError, f.rec.Notifications()[0].Level)
	assert.Equal(t, "exam not found", f.rec.Notifications()[0].Description)
	assert.Equal(t, []notify.Navigation{{Kind: notify.NavigateBack}}, f.rec.Navigations())
	assert.Zero(t, f.sched.Established())
}

func TestLoad_RejectsNonPositiveDuration(t *testing.T) {
	f := newFixture(t, sampleExam(0))

	err := f.attempt.Load(context.Background())
	assert.ErrorIs(t, err, ErrInvalidExam)
	assert.Zero(t, f.sched.Established())
}

func TestLoad_OnlyOnce(t *testing.T) {
	f := loaded(t, 10)
	assert.ErrorIs(t, f.attempt.Load(context.Background()), ErrWrongPhase)
	assert.Equal(t, 1, f.sched.Established())
}

// ─── Answers ────────────────────────────────────────────────────────────────

func TestAnswer_CompletedTracksAnswers(t *testing.T) {
	f := loaded(t, 10)

	require.NoError(t, f.attempt.Answer("q2", "a"))
	require.NoError(t, f.attempt.Answer("q1", "b"))

	s := f.attempt.Snapshot()
	assert.Len(t, s.Answers, len(s.Completed))
	assert.Equal(t, []model.ID{"q1", "q2"}, s.Completed)
	assert.InDelta(t, 66.666, s.Progress, 0.01)
	assert.Equal(t, "b", s.Questions[0].SelectedKey)
	assert.True(t, s.Questions[1].Completed)
	assert.False(t, s.Questions[2].Completed)
}

func TestAnswer_IdempotentAndLastWins(t *testing.T) {
	f := loaded(t, 10)

	require.NoError(t, f.attempt.Answer("q1", "a"))
	changes := f.rec.StateCount()
	require.NoError(t, f.attempt.Answer("q1", "a"))
	assert.Equal(t, changes, f.rec.StateCount())

	require.NoError(t, f.attempt.Answer("q1", "b"))
	s := f.attempt.Snapshot()
	assert.Equal(t, map[model.ID]string{"q1": "b"}, s.Answers)
	assert.Equal(t, []model.ID{"q1"}, s.Completed)
}

func TestAnswer_Rejections(t *testing.T) {
	f := loaded(t, 10)

	assert.ErrorIs(t, f.attempt.Answer("nope", "a"), ErrUnknownQuestion)
	assert.ErrorIs(t, f.attempt.Answer("q1", "z"), ErrUnknownOption)
	assert.ErrorIs(t, f.attempt.Answer("q1", ""), ErrInvalidAnswer)
	// unresolved questions carry no options to check against
	assert.NoError(t, f.attempt.Answer("q3", "anything"))
}

func TestAnswer_NotBeforeLoad(t *testing.T) {
	f := newFixture(t, sampleExam(10))
	assert.ErrorIs(t, f.attempt.Answer("q1", "a"), ErrWrongPhase)
}

// ─── Validate and confirm ───────────────────────────────────────────────────

func TestRequestSubmit_WarnsWithUnansweredCount(t *testing.T) {
	f := loaded(t, 10)
	require.NoError(t, f.attempt.Answer("q1", "a"))

	err := f.attempt.RequestSubmit(context.Background())

	var unanswered *UnansweredError
	require.ErrorAs(t, err, &unanswered)
	assert.Equal(t, 2, unanswered.Count)
	assert.Equal(t, PhaseInProgress, f.attempt.Snapshot().Phase)
	require.Len(t, f.rec.Notifications(), 1)
	assert.Equal(t, notify.LevelWarning, f.rec.Notifications()[0].Level)
	assert.Contains(t, f.rec.Notifications()[0].Description, "2 question(s)")
	assert.Empty(t, f.backend.Submits())
}

func TestConfirmFlow_SubmitsInQuestionOrder(t *testing.T) {
	f := loaded(t, 10)
	require.NoError(t, f.attempt.Answer("q3", "c"))
	require.NoError(t, f.attempt.Answer("q2", "b"))
	require.NoError(t, f.attempt.Answer("q1", "a"))

	require.NoError(t, f.attempt.RequestSubmit(context.Background()))
	s := f.attempt.Snapshot()
	assert.Equal(t, PhaseConfirmingSubmit, s.Phase)
	require.NotNil(t, s.Confirm)
	assert.Equal(t, "10:00", s.Confirm.TimeLeft)

	require.NoError(t, f.attempt.ConfirmSubmit(context.Background()))

	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
	assert.Equal(t, [][]model.SubmissionAnswer{expectedPayload()}, f.backend.Submits())
	assert.Equal(t, notify.LevelSuccess, f.rec.Notifications()[0].Level)
	assert.Equal(t, []notify.Navigation{{Kind: notify.NavigateReplace, Path: "/exams"}}, f.rec.Navigations())
	assert.Zero(t, f.sched.Running())
}

func TestCancelSubmit_ReturnsToInProgress(t *testing.T) {
	f := loaded(t, 10)
	answerAll(t, f.attempt)
	require.NoError(t, f.attempt.RequestSubmit(context.Background()))

	require.NoError(t, f.attempt.CancelSubmit())

	s := f.attempt.Snapshot()
	assert.Equal(t, PhaseInProgress, s.Phase)
	assert.Nil(t, s.Confirm)
	assert.Empty(t, f.backend.Submits())
	assert.ErrorIs(t, f.attempt.CancelSubmit(), ErrWrongPhase)
}

func TestConfirmSubmit_RequiresPrompt(t *testing.T) {
	f := loaded(t, 10)
	answerAll(t, f.attempt)
	assert.ErrorIs(t, f.attempt.ConfirmSubmit(context.Background()), ErrWrongPhase)
}

// ─── Countdown ──────────────────────────────────────────────────────────────

func TestCountdown_DecrementsEverySecond(t *testing.T) {
	f := loaded(t, 2)

	f.sched.Tick(5)

	s := f.attempt.Snapshot()
	assert.Equal(t, 115, s.RemainingSeconds)
	assert.Equal(t, "01:55", s.Clock)
}

func TestCountdown_ZeroForcesSubmitWithoutValidation(t *testing.T) {
	f := loaded(t, 1)
	require.NoError(t, f.attempt.Answer("q2", "a"))

	f.sched.Tick(60)

	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
	assert.Equal(t, [][]model.SubmissionAnswer{{{QuestionID: "q2", SelectedKey: "a"}}}, f.backend.Submits())
	for _, n := range f.rec.Notifications() {
		assert.NotEqual(t, notify.LevelWarning, n.Level)
	}
	assert.Contains(t, f.rec.Events(), model.AttemptEventExpired)

	f.sched.Tick(3)
	assert.Len(t, f.backend.Submits(), 1)
	assert.Zero(t, f.attempt.Snapshot().RemainingSeconds)
}

func TestCountdown_KeepsRunningWhileConfirming(t *testing.T) {
	f := loaded(t, 1)
	answerAll(t, f.attempt)
	require.NoError(t, f.attempt.RequestSubmit(context.Background()))

	f.sched.Tick(10)
	assert.Equal(t, 50, f.attempt.Snapshot().RemainingSeconds)

	f.sched.Tick(50)
	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
	assert.Len(t, f.backend.Submits(), 1)
}

func TestForcedAndConfirmedPayloadsMatch(t *testing.T) {
	confirmed := loaded(t, 1)
	answerAll(t, confirmed.attempt)
	require.NoError(t, confirmed.attempt.RequestSubmit(context.Background()))
	require.NoError(t, confirmed.attempt.ConfirmSubmit(context.Background()))

	forced := loaded(t, 1)
	answerAll(t, forced.attempt)
	forced.sched.Tick(60)

	require.Len(t, forced.backend.Submits(), 1)
	assert.Equal(t, confirmed.backend.Submits(), forced.backend.Submits())
}

// ─── Failures ───────────────────────────────────────────────────────────────

func TestSubmitFailure_RestoresInProgress(t *testing.T) {
	f := loaded(t, 10)
	f.backend.submitErr = []error{errors.New("server unavailable")}
	answerAll(t, f.attempt)
	require.NoError(t, f.attempt.RequestSubmit(context.Background()))

	err := f.attempt.ConfirmSubmit(context.Background())
	require.Error(t, err)

	s := f.attempt.Snapshot()
	assert.Equal(t, PhaseInProgress, s.Phase)
	assert.Len(t, s.Answers, 3)
	assert.Equal(t, "server unavailable", f.rec.Notifications()[0].Description)
	assert.Equal(t, notify.LevelError, f.rec.Notifications()[0].Level)
	assert.Empty(t, f.rec.Navigations())
	assert.Equal(t, 1, f.sched.Running())

	f.sched.Tick(1)
	assert.Equal(t, 599, f.attempt.Snapshot().RemainingSeconds)

	require.NoError(t, f.attempt.RequestSubmit(context.Background()))
	require.NoError(t, f.attempt.ConfirmSubmit(context.Background()))
	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
}

func TestForcedFailure_SchedulesRetry(t *testing.T) {
	f := loaded(t, 1)
	f.backend.submitErr = []error{errors.New("timeout")}

	f.sched.Tick(60)

	assert.Equal(t, PhaseInProgress, f.attempt.Snapshot().Phase)
	assert.Zero(t, f.sched.Running())
	assert.Len(t, f.backend.Submits(), 1)

	require.Equal(t, 1, f.sched.FireAfter())
	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
	assert.Len(t, f.backend.Submits(), 2)
}

func TestForcedFailure_FreezesAnswersUntilRetry(t *testing.T) {
	f := loaded(t, 1)
	f.backend.submitErr = []error{errors.New("timeout")}
	require.NoError(t, f.attempt.Answer("q1", "a"))
	f.sched.Tick(60)
	require.Equal(t, PhaseInProgress, f.attempt.Snapshot().Phase)

	assert.ErrorIs(t, f.attempt.Answer("q1", "b"), ErrExpired)
	assert.ErrorIs(t, f.attempt.Answer("q2", "a"), ErrExpired)
	assert.Equal(t, map[model.ID]string{"q1": "a"}, f.attempt.Snapshot().Answers)

	require.Equal(t, 1, f.sched.FireAfter())
	want := []model.SubmissionAnswer{{QuestionID: "q1", SelectedKey: "a"}}
	assert.Equal(t, [][]model.SubmissionAnswer{want, want}, f.backend.Submits())
	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
}

func TestRequestSubmit_AfterExpiryGoesStraightToSubmit(t *testing.T) {
	f := loaded(t, 1)
	f.backend.submitErr = []error{errors.New("timeout")}
	f.sched.Tick(60)

	require.NoError(t, f.attempt.RequestSubmit(context.Background()))

	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
	assert.Zero(t, f.sched.FireAfter())
}

// ─── Concurrency ────────────────────────────────────────────────────────────

func TestNoDoubleSubmit(t *testing.T) {
	f := loaded(t, 10)
	f.backend.started = make(chan struct{}, 1)
	f.backend.release = make(chan struct{})
	answerAll(t, f.attempt)
	require.NoError(t, f.attempt.RequestSubmit(context.Background()))

	done := make(chan error, 1)
	go func() { done <- f.attempt.ConfirmSubmit(context.Background()) }()
	<-f.backend.started

	assert.Equal(t, PhaseSubmitting, f.attempt.Snapshot().Phase)
	assert.ErrorIs(t, f.attempt.ConfirmSubmit(context.Background()), ErrSubmitInProgress)
	assert.ErrorIs(t, f.attempt.RequestSubmit(context.Background()), ErrSubmitInProgress)
	assert.ErrorIs(t, f.attempt.Answer("q1", "b"), ErrWrongPhase)
	f.sched.Tick(5)

	close(f.backend.release)
	require.NoError(t, <-done)
	assert.Len(t, f.backend.Submits(), 1)
	assert.Equal(t, PhaseDone, f.attempt.Snapshot().Phase)
}

func TestClose_StopsCountdown(t *testing.T) {
	f := loaded(t, 10)
	f.sched.Tick(3)

	f.attempt.Close()
	f.sched.Tick(3)

	assert.Equal(t, 597, f.attempt.Snapshot().RemainingSeconds)
	assert.Zero(t, f.sched.Running())
	assert.ErrorIs(t, f.attempt.Answer("q1", "a"), ErrClosed)

	// a callback that was already in flight when the ticker stopped
	f.sched.every[0].fn()
	assert.Equal(t, 597, f.attempt.Snapshot().RemainingSeconds)
}

func TestClose_IgnoresLateSubmitResult(t *testing.T) {
	f := loaded(t, 10)
	f.backend.started = make(chan struct{}, 1)
	f.backend.release = make(chan struct{})
	answerAll(t, f.attempt)
	require.NoError(t, f.attempt.RequestSubmit(context.Background()))

	done := make(chan error, 1)
	go func() { done <- f.attempt.ConfirmSubmit(context.Background()) }()
	<-f.backend.started

	f.attempt.Close()
	close(f.backend.release)

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Len(t, f.backend.Submits(), 1)
	assert.Empty(t, f.rec.Notifications())
	assert.Empty(t, f.rec.Navigations())
	assert.Equal(t, PhaseSubmitting, f.attempt.Snapshot().Phase)
}

// ─── Registry ───────────────────────────────────────────────────────────────

func TestRegistry_SingleOwnerPerExam(t *testing.T) {
	r := NewRegistry()
	first := loaded(t, 10)
	second := loaded(t, 10)

	r.Mount(first.attempt)
	r.Mount(second.attempt)

	got, ok := r.Get(model.ID(student.ID), "e-1")
	require.True(t, ok)
	assert.Same(t, second.attempt, got)
	assert.ErrorIs(t, first.attempt.Answer("q1", "a"), ErrClosed)
	assert.NoError(t, second.attempt.Answer("q1", "a"))

	r.Unmount(first.attempt)
	assert.Equal(t, 1, r.Len())

	r.Unmount(second.attempt)
	assert.Zero(t, r.Len())
	_, ok = r.Get(model.ID(student.ID), "e-1")
	assert.False(t, ok)
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	f := loaded(t, 10)
	r.Mount(f.attempt)

	r.CloseAll()

	assert.Zero(t, r.Len())
	assert.Zero(t, f.sched.Running())
}
