package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acadion/examgate-backend/internal/model"
	"github.com/acadion/examgate-backend/internal/proctor"
	"github.com/acadion/examgate-backend/internal/store"
)

func answerKey(a model.Answer) *model.Answer {
	return &a
}

// testExam builds a 45-minute exam with one 2-point single-choice question,
// one 3-point multi-choice question, and one 5-point essay.
func testExam(retakeLimit int) *model.Exam {
	return &model.Exam{
		ID:              uuid.New(),
		Title:           "Unit Test Exam",
		DurationMinutes: 45,
		RetakeLimit:     retakeLimit,
		Status:          model.ExamStatusPublished,
		Questions: []model.Question{
			{ID: uuid.New(), QuestionType: model.QuestionTypeSingleChoice, Points: 2, CorrectAnswer: answerKey(model.OptionAnswer("b")), OrderNum: 0},
			{ID: uuid.New(), QuestionType: model.QuestionTypeMultiChoice, Points: 3, CorrectAnswer: answerKey(model.OptionSetAnswer("a", "c")), OrderNum: 1},
			{ID: uuid.New(), QuestionType: model.QuestionTypeEssay, Points: 5, OrderNum: 2},
		},
	}
}

func startedEngine(t *testing.T, exam *model.Exam, st store.SubmissionStore, opts ...Option) *Engine {
	t.Helper()
	e := New(exam, 7, st, opts...)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestStartFreshAttempt(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	if got := e.State(); got != StateInProgress {
		t.Fatalf("state = %s, want IN_PROGRESS", got)
	}
	snap := e.Snapshot()
	if snap.CurrentQuestionIndex != 0 {
		t.Errorf("index = %d, want 0", snap.CurrentQuestionIndex)
	}
	if snap.RemainingSeconds != int64(45*60) {
		t.Errorf("remaining = %d, want %d", snap.RemainingSeconds, 45*60)
	}
}

func TestStartWithExistingRecord(t *testing.T) {
	exam := testExam(1)
	st := store.NewMemory()
	prior := &model.SubmissionRecord{
		Responses:      model.ResponseSet{},
		Score:          2,
		MaxScore:       10,
		RetakeCount:    0,
		SubmissionDate: time.Now().UTC(),
	}
	if err := st.Put(context.Background(), 7, exam.ID, prior); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	e := startedEngine(t, exam, st)

	if got := e.State(); got != StateFinished {
		t.Fatalf("state = %s, want FINISHED", got)
	}
	rec, ok := e.Result()
	if !ok {
		t.Fatal("no result for finished attempt")
	}
	if rec.Score != 2 || rec.MaxScore != 10 {
		t.Errorf("result = %+v, want prior record", rec)
	}
}

func TestStartWithCorruptRecordStartsFresh(t *testing.T) {
	exam := testExam(1)
	st := store.NewMemory()
	if err := st.Put(context.Background(), 7, exam.ID, &model.SubmissionRecord{}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	st.Corrupt(7, exam.ID)

	e := startedEngine(t, exam, st)

	if got := e.State(); got != StateInProgress {
		t.Fatalf("state = %s after corrupt record, want IN_PROGRESS", got)
	}
}

func TestNavigateClampsToRange(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	e.NavigateTo(2)
	if got := e.Snapshot().CurrentQuestionIndex; got != 2 {
		t.Fatalf("index = %d, want 2", got)
	}

	e.NavigateTo(-1)
	e.NavigateTo(len(exam.Questions))
	if got := e.Snapshot().CurrentQuestionIndex; got != 2 {
		t.Fatalf("index = %d after out-of-range targets, want unchanged 2", got)
	}
}

func TestSetAnswerOverwriteAndClear(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())
	qid := exam.Questions[1].ID

	e.SetAnswer(qid, model.OptionSetAnswer("a", "b"))
	e.SetAnswer(qid, model.OptionSetAnswer("c"))

	snap := e.Snapshot()
	got, ok := snap.Responses[qid]
	if !ok {
		t.Fatal("answer missing")
	}
	if len(got.Values) != 1 || got.Values[0] != "c" {
		t.Fatalf("answer = %+v, want overwrite to [c]", got)
	}

	e.SetAnswer(qid, model.Answer{})
	if _, ok := e.Snapshot().Responses[qid]; ok {
		t.Fatal("zero answer should clear the entry")
	}
}

func TestSetAnswerUnknownQuestionIgnored(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	e.SetAnswer(uuid.New(), model.OptionAnswer("a"))
	if n := len(e.Snapshot().Responses); n != 0 {
		t.Fatalf("responses = %d, want 0", n)
	}
}

func TestToggleFlag(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())
	qid := exam.Questions[0].ID

	e.ToggleFlag(qid)
	if snap := e.Snapshot(); len(snap.Flagged) != 1 || snap.Flagged[0] != qid {
		t.Fatalf("flagged = %v, want [%s]", snap.Flagged, qid)
	}

	e.ToggleFlag(qid)
	if snap := e.Snapshot(); len(snap.Flagged) != 0 {
		t.Fatalf("flagged = %v after second toggle, want empty", snap.Flagged)
	}
}

func TestSubmitGradesAndPersists(t *testing.T) {
	exam := testExam(1)
	st := store.NewMemory()
	e := startedEngine(t, exam, st)

	e.SetAnswer(exam.Questions[0].ID, model.OptionAnswer("b"))
	e.SetAnswer(exam.Questions[1].ID, model.OptionSetAnswer("c", "a"))

	rec, err := e.RequestSubmit(context.Background())
	if err != nil {
		t.Fatalf("RequestSubmit: %v", err)
	}
	if rec.Score != 5 || rec.MaxScore != 10 {
		t.Errorf("graded %v/%v, want 5/10", rec.Score, rec.MaxScore)
	}
	if e.State() != StateFinished {
		t.Errorf("state = %s, want FINISHED", e.State())
	}

	stored, err := st.Get(context.Background(), 7, exam.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored record = %v, err %v", stored, err)
	}
	if stored.Score != 5 {
		t.Errorf("stored score = %v, want 5", stored.Score)
	}
}

func TestSubmitIdempotent(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	first, err := e.RequestSubmit(context.Background())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := e.RequestSubmit(context.Background())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first != second {
		t.Fatal("second submit should return the committed record")
	}
}

func TestMutationsIgnoredAfterFinish(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	if _, err := e.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	e.NavigateTo(1)
	e.SetAnswer(exam.Questions[0].ID, model.OptionAnswer("b"))
	e.ToggleFlag(exam.Questions[0].ID)

	snap := e.Snapshot()
	if snap.CurrentQuestionIndex != 0 || len(snap.Responses) != 0 || len(snap.Flagged) != 0 {
		t.Fatalf("finished attempt mutated: %+v", snap)
	}
}

// failingStore wraps Memory and fails every Put.
type failingStore struct {
	*store.Memory
}

func (f failingStore) Put(context.Context, int, uuid.UUID, *model.SubmissionRecord) error {
	return errors.New("backend down")
}

func TestSubmitPersistenceFailureStillGrades(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, failingStore{store.NewMemory()})
	e.SetAnswer(exam.Questions[0].ID, model.OptionAnswer("b"))

	rec, err := e.RequestSubmit(context.Background())
	if !errors.Is(err, ErrPersistenceWrite) {
		t.Fatalf("err = %v, want ErrPersistenceWrite", err)
	}
	if rec == nil || rec.Score != 2 {
		t.Fatalf("rec = %+v, want graded record despite write failure", rec)
	}
	if e.State() != StateFinished {
		t.Errorf("state = %s, want FINISHED", e.State())
	}
}

func TestRetakeStartsFreshAndConsumesAllowance(t *testing.T) {
	exam := testExam(2)
	st := store.NewMemory()
	e := startedEngine(t, exam, st)

	e.SetAnswer(exam.Questions[0].ID, model.OptionAnswer("b"))
	if _, err := e.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := e.Retake(context.Background()); err != nil {
		t.Fatalf("Retake: %v", err)
	}
	if e.State() != StateInProgress {
		t.Fatalf("state = %s after retake, want IN_PROGRESS", e.State())
	}
	if n := len(e.Snapshot().Responses); n != 0 {
		t.Fatalf("responses = %d after retake, want 0", n)
	}

	// Allowance consumed up front: the stored record already carries the
	// incremented count even though the retake is still running.
	stored, err := st.Get(context.Background(), 7, exam.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored record = %v, err %v", stored, err)
	}
	if stored.RetakeCount != 1 {
		t.Fatalf("stored retake count = %d, want 1", stored.RetakeCount)
	}
}

func TestRetakeLimitExceeded(t *testing.T) {
	exam := testExam(0)
	e := startedEngine(t, exam, store.NewMemory())

	if _, err := e.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := e.Retake(context.Background())
	if !errors.Is(err, ErrRetakeLimitExceeded) {
		t.Fatalf("err = %v, want ErrRetakeLimitExceeded", err)
	}
	if e.State() != StateFinished {
		t.Fatalf("state = %s after refused retake, want FINISHED", e.State())
	}
	if _, ok := e.Result(); !ok {
		t.Fatal("result lost after refused retake")
	}
}

func TestRetakeRequiresFinished(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	if err := e.Retake(context.Background()); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("err = %v, want ErrNotFinished", err)
	}
	if e.State() != StateInProgress {
		t.Fatalf("state = %s, want IN_PROGRESS unchanged", e.State())
	}
}

func TestViolationSetsWarningAndDismiss(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	e.ObserveSignal(proctor.SignalTabBlur)
	snap := e.Snapshot()
	if snap.ViolationMessage != "Warning: tab blur detected." {
		t.Fatalf("violation message = %q", snap.ViolationMessage)
	}
	if snap.State != StateInProgress {
		t.Fatalf("state = %s, violations must not interrupt the attempt", snap.State)
	}

	e.DismissViolationWarning()
	if msg := e.Snapshot().ViolationMessage; msg != "" {
		t.Fatalf("message = %q after dismiss, want empty", msg)
	}
}

func TestViolationForwardedToSink(t *testing.T) {
	exam := testExam(1)
	var got []proctor.Violation
	sink := violationSinkFunc(func(_ context.Context, studentID int, examID uuid.UUID, v proctor.Violation) error {
		got = append(got, v)
		return nil
	})
	e := startedEngine(t, exam, store.NewMemory(), WithViolationSink(sink))

	e.ObserveSignal(proctor.SignalCopyAttempt)
	e.ObserveSignal(proctor.Signal("NOT_A_SIGNAL"))

	if len(got) != 1 {
		t.Fatalf("sink received %d violations, want 1", len(got))
	}
	if got[0].Signal != proctor.SignalCopyAttempt {
		t.Errorf("signal = %s, want COPY_ATTEMPT", got[0].Signal)
	}
}

type violationSinkFunc func(ctx context.Context, studentID int, examID uuid.UUID, v proctor.Violation) error

func (f violationSinkFunc) RecordViolation(ctx context.Context, studentID int, examID uuid.UUID, v proctor.Violation) error {
	return f(ctx, studentID, examID, v)
}

type autosaverFunc func(ctx context.Context, studentID int, examID uuid.UUID, responses model.ResponseSet) error

func (f autosaverFunc) SaveAttempt(ctx context.Context, studentID int, examID uuid.UUID, responses model.ResponseSet) error {
	return f(ctx, studentID, examID, responses)
}

func TestFlushAutosave(t *testing.T) {
	exam := testExam(1)
	var saved model.ResponseSet
	saver := autosaverFunc(func(_ context.Context, _ int, _ uuid.UUID, responses model.ResponseSet) error {
		saved = responses
		return nil
	})
	e := startedEngine(t, exam, store.NewMemory(), WithAutosaver(saver, time.Hour))

	qid := exam.Questions[0].ID
	e.SetAnswer(qid, model.OptionAnswer("b"))

	if err := e.FlushAutosave(context.Background()); err != nil {
		t.Fatalf("FlushAutosave: %v", err)
	}
	if _, ok := saved[qid]; !ok {
		t.Fatalf("saved responses = %+v, want answer for %s", saved, qid)
	}

	if _, err := e.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	saved = nil
	if err := e.FlushAutosave(context.Background()); err != nil {
		t.Fatalf("FlushAutosave after finish: %v", err)
	}
	if saved != nil {
		t.Fatal("autosave must be a no-op once the attempt is finished")
	}
}

func TestExpiryAutoSubmits(t *testing.T) {
	exam := testExam(1)
	st := store.NewMemory()
	e := startedEngine(t, exam, st)

	e.SetAnswer(exam.Questions[0].ID, model.OptionAnswer("b"))

	// Drive the countdown callback directly: the attempt must finalize with
	// whatever responses exist at that instant.
	e.onExpire()

	if e.State() != StateFinished {
		t.Fatalf("state = %s after expiry, want FINISHED", e.State())
	}
	if rem := e.Snapshot().RemainingSeconds; rem != 0 {
		t.Errorf("remaining = %d after expiry, want 0", rem)
	}
	rec, ok := e.Result()
	if !ok || rec == nil {
		t.Fatal("no result after expiry")
	}
	if rec.Score != 2 || rec.MaxScore != 10 {
		t.Errorf("graded %v/%v, want 2/10", rec.Score, rec.MaxScore)
	}
	stored, err := st.Get(context.Background(), 7, exam.ID)
	if err != nil || stored == nil {
		t.Fatalf("expiry result not persisted: rec %v err %v", stored, err)
	}
}

func TestExpiryRaceWithSubmit(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())

	rec, err := e.RequestSubmit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A late timer callback must degrade to a no-op against the committed
	// result.
	e.onExpire()

	got, ok := e.Result()
	if !ok || got != rec {
		t.Fatal("late expiry displaced the committed result")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	exam := testExam(1)
	e := startedEngine(t, exam, store.NewMemory())
	qid := exam.Questions[1].ID
	e.SetAnswer(qid, model.OptionSetAnswer("a"))

	snap := e.Snapshot()
	snap.Responses[qid] = model.OptionSetAnswer("z")

	if got := e.Snapshot().Responses[qid]; got.Values[0] != "a" {
		t.Fatal("mutating a snapshot leaked into the engine")
	}
}
