package websocket

import (
	"github.com/acadion/examgate-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionNavigate  Action = "navigate"
	ActionFlag      Action = "flag"
	ActionViolation Action = "violation"
	ActionDismiss   Action = "dismiss_warning"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest is sent by the client to save a single answer.
type AnswerRequest struct {
	Action     Action       `json:"action"`
	QuestionID string       `json:"question_id"`
	Answer     model.Answer `json:"answer"`
}

// NavigateRequest is sent by the client to move to a question index.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// FlagRequest toggles the review flag on a question.
type FlagRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
}

// ViolationRequest is sent by the client to report a proctoring signal.
type ViolationRequest struct {
	Action Action `json:"action"`
	Signal string `json:"signal"`
}

// SubmitRequest is sent by the client to finish and grade the exam.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSuccess  Event = "success"
	EventSnapshot Event = "snapshot"
	EventWarning  Event = "warning"
	EventGraded   Event = "graded"
	EventPong     Event = "pong"
)

type AckResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type WarningResponse struct {
	Event   Event  `json:"event"`
	Message string `json:"message"`
}

type GradedResponse struct {
	Event    Event   `json:"event"`
	Status   string  `json:"status"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
