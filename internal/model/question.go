package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds. Short-answer and
// essay questions are never auto-scored.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeShortAnswer  QuestionType = "SHORT_ANSWER"
	QuestionTypeEssay        QuestionType = "ESSAY"
)

// AutoScorable reports whether the type participates in objective scoring.
func (t QuestionType) AutoScorable() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultiChoice
}

// Option is one selectable choice of a choice-type question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question represents a single exam question.
type Question struct {
	ID           uuid.UUID    `json:"id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Points       float64      `json:"points"`
	Options      []Option     `json:"options,omitempty"`
	// CorrectAnswer is nil for free-text types. For choice types it holds a
	// single option ID or a set of option IDs.
	CorrectAnswer *Answer `json:"correct_answer,omitempty"`
	OrderNum      int     `json:"order_num"`
}

// QuestionForStudent is a question stripped of the correct answer, safe to
// send to an exam taker.
type QuestionForStudent struct {
	ID           uuid.UUID    `json:"id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Points       float64      `json:"points"`
	Options      []Option     `json:"options,omitempty"`
	OrderNum     int          `json:"order_num"`
}

// ForStudent strips the correct answer.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Points:       q.Points,
		Options:      q.Options,
		OrderNum:     q.OrderNum,
	}
}
