package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/acadion/examgate-backend/internal/config"
	"github.com/acadion/examgate-backend/internal/model"
)

// DurableFallback reads submission records from the durable mirror
// (PostgreSQL) when the cache has no entry. Implemented by
// repository.SubmissionRepository.
type DurableFallback interface {
	GetSubmission(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmissionRecord, error)
}

// Redis stores submission records as JSON in Redis, with an optional
// read-through fallback to the durable mirror and write-behind persistence
// via the persist_submissions_queue.
type Redis struct {
	rdb      *redis.Client
	fallback DurableFallback
	log      zerolog.Logger
}

// NewRedis creates a Redis-backed SubmissionStore. fallback may be nil.
func NewRedis(rdb *redis.Client, fallback DurableFallback, log zerolog.Logger) *Redis {
	return &Redis{
		rdb:      rdb,
		fallback: fallback,
		log:      log.With().Str("component", "submission_store").Logger(),
	}
}

// submissionEnvelope is the queue payload consumed by the submission worker.
type submissionEnvelope struct {
	StudentID int                     `json:"student_id"`
	ExamID    string                  `json:"exam_id"`
	Record    *model.SubmissionRecord `json:"record"`
}

// Get returns the record for the key, or (nil, nil) when absent. A corrupt
// cached payload is treated as absent; a Redis miss falls back to the
// durable mirror and self-heals the cache.
func (s *Redis) Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmissionRecord, error) {
	key := config.CacheKey.StudentSubmissionKey(examID.String(), studentID)

	raw, err := s.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return s.getFromFallback(ctx, studentID, examID, key)
	case err != nil:
		return nil, fmt.Errorf("redis get submission: %w", err)
	}

	var rec model.SubmissionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// Unparsable cached state is indistinguishable from no state:
		// drop it so the next write starts clean.
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt submission record")
		s.rdb.Del(ctx, key)
		return nil, nil
	}
	return &rec, nil
}

func (s *Redis) getFromFallback(ctx context.Context, studentID int, examID uuid.UUID, key string) (*model.SubmissionRecord, error) {
	if s.fallback == nil {
		return nil, nil
	}

	rec, err := s.fallback.GetSubmission(ctx, studentID, examID)
	if err != nil || rec == nil {
		// Absent in the mirror too; a mirror error is not worth failing a
		// read that has a clean absent answer.
		return nil, nil
	}

	// Self-heal so the next read is a cache hit.
	if raw, err := json.Marshal(rec); err == nil {
		_ = s.rdb.Set(ctx, key, raw, 0).Err()
	}
	return rec, nil
}

// Put caches the record and enqueues it for durable persistence. The write
// fails only when the cache write fails; queueing is best-effort because the
// worker re-reads nothing the cache does not already hold.
func (s *Redis) Put(ctx context.Context, studentID int, examID uuid.UUID, rec *model.SubmissionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	key := config.CacheKey.StudentSubmissionKey(examID.String(), studentID)
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set submission: %w", err)
	}

	envelope, _ := json.Marshal(submissionEnvelope{
		StudentID: studentID,
		ExamID:    examID.String(),
		Record:    rec,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, envelope).Err(); err != nil {
		s.log.Error().Err(err).Int("student_id", studentID).Msg("Failed to queue submission for durable write")
	}
	return nil
}
