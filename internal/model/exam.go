package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity. It is authored by instructor tooling and
// immutable for the duration of an attempt.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	InstructorName  string     `json:"instructor_name"`
	Department      string     `json:"department"`
	DurationMinutes int        `json:"duration_minutes"`
	RetakeLimit     int        `json:"retake_limit"`
	Status          ExamStatus `json:"status"`
	Questions       []Question `json:"questions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MaxScore is the sum of all question points.
func (e *Exam) MaxScore() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// QuestionByID returns the question with the given ID, or false.
func (e *Exam) QuestionByID(id uuid.UUID) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// ExamPayload is the Redis-cached exam content sent to students (no correct
// answers).
type ExamPayload struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	InstructorName  string               `json:"instructor_name"`
	DurationMinutes int                  `json:"duration_minutes"`
	RetakeLimit     int                  `json:"retake_limit"`
	Questions       []QuestionForStudent `json:"questions"`
}

// Payload strips correct answers from every question.
func (e *Exam) Payload() *ExamPayload {
	qs := make([]QuestionForStudent, 0, len(e.Questions))
	for _, q := range e.Questions {
		qs = append(qs, q.ForStudent())
	}
	return &ExamPayload{
		ExamID:          e.ID,
		Title:           e.Title,
		InstructorName:  e.InstructorName,
		DurationMinutes: e.DurationMinutes,
		RetakeLimit:     e.RetakeLimit,
		Questions:       qs,
	}
}
