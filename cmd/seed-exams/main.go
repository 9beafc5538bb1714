package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acadion/examgate-backend/internal/config"
	"github.com/acadion/examgate-backend/internal/database"
	"github.com/acadion/examgate-backend/internal/logger"
	"github.com/acadion/examgate-backend/internal/model"
)

// Seeds one published demo exam with a mixed question set so a fresh
// install has something to take.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding Demo Exam ===")

	examID := uuid.New()
	_, err = pool.Exec(ctx,
		`INSERT INTO exams (id, title, instructor_name, department, duration_minutes, retake_limit, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		examID, "Computer Networks Midterm", "Dr. Priya Raman", "Computer Science", 45, 1, model.ExamStatusPublished,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert exam")
	}

	type seedQuestion struct {
		text    string
		qtype   model.QuestionType
		points  float64
		options []model.Option
		key     *model.Answer
	}

	single := func(v string) *model.Answer {
		a := model.OptionAnswer(v)
		return &a
	}
	multi := func(vs ...string) *model.Answer {
		a := model.OptionSetAnswer(vs...)
		return &a
	}

	questions := []seedQuestion{
		{
			text:   "Which layer of the OSI model handles routing?",
			qtype:  model.QuestionTypeSingleChoice,
			points: 2,
			options: []model.Option{
				{ID: "a", Text: "Data link"},
				{ID: "b", Text: "Network"},
				{ID: "c", Text: "Transport"},
				{ID: "d", Text: "Session"},
			},
			key: single("b"),
		},
		{
			text:   "Select all connection-oriented protocols.",
			qtype:  model.QuestionTypeMultiChoice,
			points: 3,
			options: []model.Option{
				{ID: "a", Text: "TCP"},
				{ID: "b", Text: "UDP"},
				{ID: "c", Text: "SCTP"},
				{ID: "d", Text: "ICMP"},
			},
			key: multi("a", "c"),
		},
		{
			text:   "What does DNS stand for?",
			qtype:  model.QuestionTypeShortAnswer,
			points: 2,
		},
		{
			text:   "Explain how a three-way handshake establishes a TCP connection.",
			qtype:  model.QuestionTypeEssay,
			points: 5,
		},
	}

	for i, q := range questions {
		optionsJSON, err := json.Marshal(q.options)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to marshal options")
		}
		var keyJSON []byte
		if q.key != nil {
			keyJSON, err = json.Marshal(q.key)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to marshal answer key")
			}
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO questions (id, exam_id, question_text, question_type, points, options, correct_answer, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), examID, q.text, q.qtype, q.points, optionsJSON, keyJSON, i,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to insert question")
		}
	}

	fmt.Printf("\nSeed completed! Exam %s with %d questions.\n", examID, len(questions))
}
