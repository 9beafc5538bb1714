package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadion/examgate-backend/internal/model"
)

// SubmissionRepository reads the durable submissions mirror. Writes go
// through the submission worker's batch path.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// GetSubmission retrieves the stored record for a (student, exam) key.
// Absence and an unparsable responses payload both return (nil, nil),
// matching the submission store contract.
func (r *SubmissionRepository) GetSubmission(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmissionRecord, error) {
	var (
		rec          model.SubmissionRecord
		responsesRaw []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT responses, time_taken_seconds, retake_count, score, max_score, submitted_at
		 FROM submissions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&responsesRaw, &rec.TimeTakenSeconds, &rec.RetakeCount, &rec.Score, &rec.MaxScore, &rec.SubmissionDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Responses = model.ResponseSet{}
	if len(responsesRaw) > 0 {
		if err := json.Unmarshal(responsesRaw, &rec.Responses); err != nil {
			return nil, nil
		}
	}
	return &rec, nil
}
