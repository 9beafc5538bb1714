package model

import (
	"time"
)

// SubmissionRecord is the durable, scored result of a finished attempt.
// One record exists per (student, exam) key; writes are last-write-wins.
// Invariant: 0 <= Score <= MaxScore, MaxScore being the point total of the
// exam version the attempt was scored against.
type SubmissionRecord struct {
	Responses        ResponseSet `json:"responses"`
	TimeTakenSeconds int         `json:"time_taken_seconds"`
	RetakeCount      int         `json:"retake_count"`
	Score            float64     `json:"score"`
	MaxScore         float64     `json:"max_score"`
	SubmissionDate   time.Time   `json:"submission_date"`
}
