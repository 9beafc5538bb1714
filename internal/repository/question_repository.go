package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadion/examgate-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions of an exam in display order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_text, question_type, points, options, correct_answer, order_num
		 FROM questions
		 WHERE exam_id = $1
		 ORDER BY order_num ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q          model.Question
			optionsRaw []byte
			correctRaw []byte
		)
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.QuestionType, &q.Points,
			&optionsRaw, &correctRaw, &q.OrderNum); err != nil {
			return nil, err
		}
		if len(optionsRaw) > 0 {
			if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
				return nil, fmt.Errorf("decode options for question %s: %w", q.ID, err)
			}
		}
		if len(correctRaw) > 0 {
			var key model.Answer
			if err := json.Unmarshal(correctRaw, &key); err != nil {
				return nil, fmt.Errorf("decode answer key for question %s: %w", q.ID, err)
			}
			q.CorrectAnswer = &key
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
