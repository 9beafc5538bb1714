// Package session implements the exam session engine: the state machine
// governing one student's attempt at one exam, from loading any prior
// submission through navigation, answer capture, flagging, countdown expiry,
// scoring, and persistence of the final submission record.
package session

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/acadion/examgate-backend/internal/model"
	"github.com/acadion/examgate-backend/internal/proctor"
	"github.com/acadion/examgate-backend/internal/scoring"
	"github.com/acadion/examgate-backend/internal/store"
	"github.com/acadion/examgate-backend/internal/timer"
)

// State is the attempt lifecycle state.
type State int32

const (
	StateLoading State = iota
	StateInProgress
	StateSubmitting
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateSubmitting:
		return "SUBMITTING"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state as its name in JSON snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Autosaver persists in-progress responses in the background. Advisory:
// failures are logged and retried on the next tick, never blocking the
// attempt.
type Autosaver interface {
	SaveAttempt(ctx context.Context, studentID int, examID uuid.UUID, responses model.ResponseSet) error
}

// ViolationSink receives observed violations for audit. Best-effort.
type ViolationSink interface {
	RecordViolation(ctx context.Context, studentID int, examID uuid.UUID, v proctor.Violation) error
}

// Snapshot is the attempt view exposed to the presentation layer.
type Snapshot struct {
	State                State             `json:"state"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	Responses            model.ResponseSet `json:"responses"`
	Flagged              []uuid.UUID       `json:"flagged"`
	RemainingSeconds     int64             `json:"remaining_seconds"`
	ViolationMessage     string            `json:"violation_message,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// WithTimerTick sets the countdown resolution.
func WithTimerTick(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// WithAutosaver enables periodic background persistence of responses.
func WithAutosaver(a Autosaver, every time.Duration) Option {
	return func(e *Engine) {
		e.autosaver = a
		e.autosaveEvery = every
	}
}

// WithViolationSink forwards violations for audit logging.
func WithViolationSink(sink ViolationSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// Engine owns one attempt. All mutations are serialized; asynchronous
// signals (timer expiry, violations, autosave ticks, a user submit) never
// run in parallel against the attempt state, and finalize executes at most
// once per attempt, guarded by a compare-and-set on the lifecycle state.
type Engine struct {
	exam      *model.Exam
	studentID int
	store     store.SubmissionStore

	log           zerolog.Logger
	clock         func() time.Time
	tick          time.Duration
	autosaver     Autosaver
	autosaveEvery time.Duration
	sink          ViolationSink

	state     atomic.Int32
	remaining atomic.Int64

	mu           sync.Mutex
	attempt      model.Attempt
	result       *model.SubmissionRecord
	violationMsg string
	countdown    *timer.Countdown
	monitor      *proctor.Monitor
	done         chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates an engine for one (student, exam) pair. Call Start to run the
// Loading step.
func New(exam *model.Exam, studentID int, st store.SubmissionStore, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		exam:          exam,
		studentID:     studentID,
		store:         st,
		log:           zerolog.Nop(),
		clock:         time.Now,
		tick:          time.Second,
		autosaveEvery: 30 * time.Second,
		baseCtx:       ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().
		Str("component", "session_engine").
		Int("student_id", studentID).
		Str("exam_id", exam.ID.String()).
		Logger()
	return e
}

// Start runs the Loading step: an existing submission record whose retake
// count is within the limit short-circuits to Finished; otherwise a fresh
// attempt begins. A corrupt or unreadable record is treated as absent.
func (e *Engine) Start(ctx context.Context) error {
	rec, err := e.store.Get(ctx, e.studentID, e.exam.ID)
	if err != nil {
		e.log.Warn().Err(err).Msg("Submission lookup failed, starting fresh attempt")
		rec = nil
	}

	if rec != nil && rec.RetakeCount <= e.exam.RetakeLimit {
		e.mu.Lock()
		e.result = rec
		e.attempt.RetakeCount = rec.RetakeCount
		e.mu.Unlock()
		e.state.Store(int32(StateFinished))
		e.log.Info().Int("retake_count", rec.RetakeCount).Msg("Existing submission found")
		return nil
	}

	carried := 0
	if rec != nil {
		carried = rec.RetakeCount
	}
	e.beginAttempt(carried)
	return nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Exam returns the immutable exam this engine runs against.
func (e *Engine) Exam() *model.Exam {
	return e.exam
}

// NavigateTo moves the cursor to the question at index. Out-of-range
// targets and calls outside InProgress are ignored, not errors.
func (e *Engine) NavigateTo(index int) {
	if e.State() != StateInProgress {
		return
	}
	if index < 0 || index >= len(e.exam.Questions) {
		return
	}
	e.mu.Lock()
	e.attempt.CurrentQuestionIndex = index
	e.mu.Unlock()
}

// SetAnswer replaces the prior answer for the question — overwrite, not
// merge, for multi-choice. A zero answer clears the entry. Unknown question
// IDs and calls outside InProgress are ignored.
func (e *Engine) SetAnswer(questionID uuid.UUID, answer model.Answer) {
	if e.State() != StateInProgress {
		return
	}
	if _, ok := e.exam.QuestionByID(questionID); !ok {
		return
	}
	e.mu.Lock()
	if answer.IsZero() {
		delete(e.attempt.Responses, questionID)
	} else {
		e.attempt.Responses[questionID] = answer
	}
	e.mu.Unlock()
}

// ToggleFlag flips the review flag on a question.
func (e *Engine) ToggleFlag(questionID uuid.UUID) {
	if e.State() != StateInProgress {
		return
	}
	if _, ok := e.exam.QuestionByID(questionID); !ok {
		return
	}
	e.mu.Lock()
	if _, flagged := e.attempt.Flagged[questionID]; flagged {
		delete(e.attempt.Flagged, questionID)
	} else {
		e.attempt.Flagged[questionID] = struct{}{}
	}
	e.mu.Unlock()
}

// ObserveSignal feeds one environment signal to the violation monitor.
// Ignored outside InProgress.
func (e *Engine) ObserveSignal(sig proctor.Signal) {
	if e.State() != StateInProgress {
		return
	}
	e.mu.Lock()
	monitor := e.monitor
	e.mu.Unlock()
	if monitor != nil {
		monitor.Observe(sig)
	}
}

// DismissViolationWarning clears the pending warning message.
func (e *Engine) DismissViolationWarning() {
	e.mu.Lock()
	e.violationMsg = ""
	e.mu.Unlock()
}

// Snapshot returns a copy of the current attempt view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	flagged := make([]uuid.UUID, 0, len(e.attempt.Flagged))
	for id := range e.attempt.Flagged {
		flagged = append(flagged, id)
	}
	sort.Slice(flagged, func(i, j int) bool {
		return bytes.Compare(flagged[i][:], flagged[j][:]) < 0
	})

	return Snapshot{
		State:                e.State(),
		CurrentQuestionIndex: e.attempt.CurrentQuestionIndex,
		Responses:            e.attempt.Responses.Clone(),
		Flagged:              flagged,
		RemainingSeconds:     e.remaining.Load(),
		ViolationMessage:     e.violationMsg,
	}
}

// Result returns the submission record of a finished attempt.
func (e *Engine) Result() (*model.SubmissionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return nil, false
	}
	return e.result, true
}

// RequestSubmit finalizes the attempt: scores the response set, records the
// SubmissionRecord, and writes it through the store. Calling it when the
// attempt is no longer InProgress is a no-op returning the existing result.
// A failed store write returns the record together with ErrPersistenceWrite.
func (e *Engine) RequestSubmit(ctx context.Context) (*model.SubmissionRecord, error) {
	return e.finalize(ctx, "submit")
}

// Retake starts a fresh attempt after a finished one. The incremented retake
// count is persisted before the reset so an abandoned retake still consumes
// the allowance. Fails with ErrRetakeLimitExceeded when the allowance is
// used up, leaving state and stored record unchanged.
func (e *Engine) Retake(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateFinished), int32(StateLoading)) {
		return ErrNotFinished
	}

	e.mu.Lock()
	count := e.attempt.RetakeCount
	prior := e.result
	if prior != nil {
		count = prior.RetakeCount
	}
	if count >= e.exam.RetakeLimit {
		e.mu.Unlock()
		e.state.Store(int32(StateFinished))
		return ErrRetakeLimitExceeded
	}
	newCount := count + 1

	rec := model.SubmissionRecord{
		Responses:      model.ResponseSet{},
		SubmissionDate: e.clock(),
	}
	if prior != nil {
		rec = *prior
	}
	rec.RetakeCount = newCount
	e.mu.Unlock()

	writeErr := e.store.Put(ctx, e.studentID, e.exam.ID, &rec)

	e.beginAttempt(newCount)
	e.log.Info().Int("retake_count", newCount).Msg("Retake started")

	if writeErr != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, writeErr)
	}
	return nil
}

// Close abandons the engine: scoped resources are released and no further
// callbacks fire. An in-progress attempt is not finalized.
func (e *Engine) Close() {
	e.releaseAttemptResources()
	e.cancel()
}

// beginAttempt resets attempt state and acquires the scoped resources
// (countdown, monitor, autosave loop), then enters InProgress.
func (e *Engine) beginAttempt(retakeCount int) {
	duration := time.Duration(e.exam.DurationMinutes) * time.Minute
	done := make(chan struct{})

	countdown := timer.New(duration, e.tick,
		func(rem time.Duration) { e.remaining.Store(int64(rem / time.Second)) },
		e.onExpire,
	)

	e.mu.Lock()
	e.attempt = model.NewAttempt(e.exam.ID, e.studentID, retakeCount, e.clock())
	e.result = nil
	e.violationMsg = ""
	e.countdown = countdown
	e.monitor = proctor.NewMonitor(e.recordViolation)
	e.done = done
	e.mu.Unlock()

	e.remaining.Store(int64(duration / time.Second))
	e.state.Store(int32(StateInProgress))
	countdown.Start()

	if e.autosaver != nil {
		go e.autosaveLoop(done)
	}
}

// finalize performs the Submitting step. The CAS on the lifecycle state
// guarantees at most one execution per attempt: when a manual submit and a
// timer expiry race, the first writer wins and the loser degrades to
// returning the committed result.
func (e *Engine) finalize(ctx context.Context, reason string) (*model.SubmissionRecord, error) {
	if !e.state.CompareAndSwap(int32(StateInProgress), int32(StateSubmitting)) {
		rec, _ := e.Result()
		return rec, nil
	}

	e.releaseAttemptResources()

	e.mu.Lock()
	now := e.clock()
	taken := int(now.Sub(e.attempt.StartTime) / time.Second)
	if taken < 0 {
		taken = 0
	}
	graded := scoring.Grade(e.exam.Questions, e.attempt.Responses)
	rec := &model.SubmissionRecord{
		Responses:        e.attempt.Responses.Clone(),
		TimeTakenSeconds: taken,
		RetakeCount:      e.attempt.RetakeCount,
		Score:            graded.Score,
		MaxScore:         graded.MaxScore,
		SubmissionDate:   now.UTC(),
	}
	e.result = rec
	e.mu.Unlock()

	// Scoring and the state transition commit together; only the
	// durability write below may independently fail.
	e.state.Store(int32(StateFinished))

	e.log.Info().
		Str("reason", reason).
		Float64("score", rec.Score).
		Float64("max_score", rec.MaxScore).
		Int("time_taken_s", rec.TimeTakenSeconds).
		Msg("Attempt finalized")

	if err := e.store.Put(ctx, e.studentID, e.exam.ID, rec); err != nil {
		e.log.Error().Err(err).Msg("Submission write failed")
		return rec, fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	return rec, nil
}

// onExpire is the countdown callback: finalize with whatever responses
// exist at that instant. The countdown fires it at most once, and the CAS
// in finalize makes a race against a manual submit harmless.
func (e *Engine) onExpire() {
	e.remaining.Store(0)
	if _, err := e.finalize(e.baseCtx, "expiry"); err != nil {
		e.log.Error().Err(err).Msg("Auto-submit on expiry failed to persist")
	}
}

// releaseAttemptResources stops the countdown and the autosave loop so no
// stray callback can fire against a discarded attempt.
func (e *Engine) releaseAttemptResources() {
	e.mu.Lock()
	countdown := e.countdown
	done := e.done
	e.countdown = nil
	e.done = nil
	e.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}
	if done != nil {
		close(done)
	}
}

func (e *Engine) recordViolation(v proctor.Violation) {
	e.mu.Lock()
	e.violationMsg = v.Message
	e.mu.Unlock()

	e.log.Info().Str("signal", string(v.Signal)).Msg("Violation observed")

	if e.sink != nil {
		if err := e.sink.RecordViolation(e.baseCtx, e.studentID, e.exam.ID, v); err != nil {
			e.log.Warn().Err(err).Msg("Violation audit write failed")
		}
	}
}

// FlushAutosave persists the current responses immediately, outside the
// periodic loop. Used by the live attempt stream.
func (e *Engine) FlushAutosave(ctx context.Context) error {
	if e.autosaver == nil || e.State() != StateInProgress {
		return nil
	}
	e.mu.Lock()
	responses := e.attempt.Responses.Clone()
	e.mu.Unlock()
	return e.autosaver.SaveAttempt(ctx, e.studentID, e.exam.ID, responses)
}

func (e *Engine) autosaveLoop(done chan struct{}) {
	ticker := time.NewTicker(e.autosaveEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.mu.Lock()
			if len(e.attempt.Responses) == 0 {
				e.mu.Unlock()
				continue
			}
			responses := e.attempt.Responses.Clone()
			e.mu.Unlock()

			if err := e.autosaver.SaveAttempt(e.baseCtx, e.studentID, e.exam.ID, responses); err != nil {
				e.log.Warn().Err(err).Msg("Autosave failed, will retry on next tick")
			}
		}
	}
}
