package service

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
	"github.com/acadion/examgate-backend/internal/repository"
)

// Domain errors.
var (
	ErrExamNotAvailable = errors.New("exam is not available")
	ErrNoQuestions      = errors.New("exam has no questions")
)

// ExamService handles exam loading and Redis payload caching.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetExam loads a published exam with its full question set, answer keys
// included. Used by the attempt engine for grading.
func (s *ExamService) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotAvailable
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}

	questions, err := s.questionRepo.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	exam.Questions = questions

	return exam, nil
}

// ListByDepartment retrieves published exams for a student's department.
func (s *ExamService) ListByDepartment(ctx context.Context, department string) ([]model.Exam, error) {
	exams, err := s.examRepo.ListPublishedByDepartment(ctx, department)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// GetExamPayload retrieves the student-facing payload, read-through cached
// in Redis. Correct answers are never present in the payload.
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	key := config.CacheKey.ExamPayloadKey(examID.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var payload model.ExamPayload
		if jsonErr := json.Unmarshal(data, &payload); jsonErr == nil {
			return &payload, nil
		}
		// Corrupt cache entry, rebuild below.
		_ = s.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	return s.warmPayload(ctx, exam), nil
}

// warmPayload builds the student payload and caches it. Cache failures are
// logged, not surfaced.
func (s *ExamService) warmPayload(ctx context.Context, exam *model.Exam) *model.ExamPayload {
	payload := exam.Payload()

	data, err := json.Marshal(payload)
	if err == nil {
		key := config.CacheKey.ExamPayloadKey(exam.ID.String())
		if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to cache payload")
		}
	}
	return payload
}

// PrewarmPayloads loads all published exam payloads into Redis on startup.
func (s *ExamService) PrewarmPayloads(ctx context.Context) error {
	ids, err := s.examRepo.ListPublishedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(ids) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	warmed := 0
	for _, id := range ids {
		exam, err := s.GetExam(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to warm exam, skipping")
			continue
		}
		s.warmPayload(ctx, exam)
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(ids)).Msg("Prewarming complete")
	return nil
}
