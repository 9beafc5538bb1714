package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one student's in-flight pass at an exam. It is owned exclusively
// by the session engine for the duration of the attempt and never shared
// across attempts or students.
type Attempt struct {
	ExamID               uuid.UUID
	StudentID            int
	CurrentQuestionIndex int
	Responses            ResponseSet
	Flagged              map[uuid.UUID]struct{}
	StartTime            time.Time
	RetakeCount          int
}

// NewAttempt initializes a fresh attempt starting at the first question.
func NewAttempt(examID uuid.UUID, studentID int, retakeCount int, start time.Time) Attempt {
	return Attempt{
		ExamID:      examID,
		StudentID:   studentID,
		Responses:   make(ResponseSet),
		Flagged:     make(map[uuid.UUID]struct{}),
		StartTime:   start,
		RetakeCount: retakeCount,
	}
}

// NavigateRequest is the payload for jumping to a question by index.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required"`
}

// AnswerRequest is the payload for recording an answer.
type AnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     Answer    `json:"answer"`
}

// FlagRequest is the payload for toggling a review flag on a question.
type FlagRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}
