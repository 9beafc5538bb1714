package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/acadion/examgate-backend/internal/config"
	"github.com/acadion/examgate-backend/internal/model"
	"github.com/acadion/examgate-backend/internal/proctor"
	"github.com/acadion/examgate-backend/internal/session"
	"github.com/acadion/examgate-backend/internal/store"
)

// ErrAttemptNotStarted is returned when a command targets an exam the
// student has not started in this server's lifetime.
var ErrAttemptNotStarted = errors.New("attempt not started")

// SessionService owns the live attempt engines, one per (student, exam).
type SessionService struct {
	examService *ExamService
	submissions store.SubmissionStore
	rdb         *redis.Client
	cfg         *config.Config
	log         zerolog.Logger

	mu      sync.Mutex
	engines map[string]*session.Engine
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	examService *ExamService,
	submissions store.SubmissionStore,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		examService: examService,
		submissions: submissions,
		rdb:         rdb,
		cfg:         cfg,
		log:         log.With().Str("component", "session_service").Logger(),
		engines:     make(map[string]*session.Engine),
	}
}

func engineKey(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", studentID, examID)
}

// StartAttempt returns the live engine for (student, exam), creating and
// starting one if none exists. Starting is idempotent: a student who
// refreshes mid-attempt reattaches to the same engine.
func (s *SessionService) StartAttempt(ctx context.Context, studentID int, examID uuid.UUID) (*session.Engine, error) {
	key := engineKey(studentID, examID)

	s.mu.Lock()
	if eng, ok := s.engines[key]; ok {
		s.mu.Unlock()
		return eng, nil
	}
	s.mu.Unlock()

	exam, err := s.examService.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	eng := session.New(exam, studentID, s.submissions,
		session.WithLogger(s.log),
		session.WithTimerTick(s.cfg.TimerTick),
		session.WithAutosaver(&redisAutosaver{rdb: s.rdb, log: s.log}, s.cfg.AutosaveInterval),
		session.WithViolationSink(&redisViolationSink{rdb: s.rdb, log: s.log}),
	)

	s.mu.Lock()
	if existing, ok := s.engines[key]; ok {
		// Lost the race to a concurrent start; discard ours.
		s.mu.Unlock()
		eng.Close()
		return existing, nil
	}
	s.engines[key] = eng
	s.mu.Unlock()

	if err := eng.Start(ctx); err != nil {
		s.mu.Lock()
		delete(s.engines, key)
		s.mu.Unlock()
		eng.Close()
		return nil, fmt.Errorf("start attempt: %w", err)
	}

	return eng, nil
}

// GetEngine returns the live engine for (student, exam), or
// ErrAttemptNotStarted.
func (s *SessionService) GetEngine(studentID int, examID uuid.UUID) (*session.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, ok := s.engines[engineKey(studentID, examID)]
	if !ok {
		return nil, ErrAttemptNotStarted
	}
	return eng, nil
}

// CloseAll shuts down every live engine. Called during graceful shutdown;
// running attempts flush their autosave state on the way out.
func (s *SessionService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	engines := make([]*session.Engine, 0, len(s.engines))
	for _, eng := range s.engines {
		engines = append(engines, eng)
	}
	s.engines = make(map[string]*session.Engine)
	s.mu.Unlock()

	for _, eng := range engines {
		if err := eng.FlushAutosave(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Autosave flush on shutdown failed")
		}
		eng.Close()
	}
}

// ─── Redis-backed engine collaborators ──────────────────────────────

// answerEnvelope is the queue payload for the answer persistence worker.
type answerEnvelope struct {
	StudentID int               `json:"student_id"`
	ExamID    uuid.UUID         `json:"exam_id"`
	Responses model.ResponseSet `json:"responses"`
	SavedAt   time.Time         `json:"saved_at"`
}

// redisAutosaver writes the draft answer set to a Redis hash for fast
// reattach, then queues it for durable persistence.
type redisAutosaver struct {
	rdb *redis.Client
	log zerolog.Logger
}

func (a *redisAutosaver) SaveAttempt(ctx context.Context, studentID int, examID uuid.UUID, responses model.ResponseSet) error {
	hashKey := config.CacheKey.StudentAnswersKey(examID.String(), studentID)

	fields := make(map[string]interface{}, len(responses))
	for qid, ans := range responses {
		data, err := json.Marshal(ans)
		if err != nil {
			continue
		}
		fields[qid.String()] = data
	}

	pipe := a.rdb.Pipeline()
	if len(fields) > 0 {
		pipe.HSet(ctx, hashKey, fields)
	}

	env := answerEnvelope{
		StudentID: studentID,
		ExamID:    examID,
		Responses: responses,
		SavedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal autosave envelope: %w", err)
	}
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosave to redis: %w", err)
	}
	return nil
}

// violationEnvelope is the queue payload for the violation audit worker.
type violationEnvelope struct {
	StudentID  int       `json:"student_id"`
	ExamID     uuid.UUID `json:"exam_id"`
	Signal     string    `json:"signal"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// redisViolationSink queues observed violations for the audit worker.
type redisViolationSink struct {
	rdb *redis.Client
	log zerolog.Logger
}

func (v *redisViolationSink) RecordViolation(ctx context.Context, studentID int, examID uuid.UUID, violation proctor.Violation) error {
	env := violationEnvelope{
		StudentID:  studentID,
		ExamID:     examID,
		Signal:     string(violation.Signal),
		Message:    violation.Message,
		OccurredAt: violation.OccurredAt,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal violation envelope: %w", err)
	}
	if err := v.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue violation: %w", err)
	}
	return nil
}
