// Package scoring computes objective scores for finished attempts.
package scoring

import (
	"github.com/acadion/examgate-backend/internal/model"
)

// Result is the outcome of grading one response set.
type Result struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
}

// Grade is a pure function from a question set and a response set to a
// score pair. Every question contributes its points to MaxScore. A question
// contributes to Score only when its type is auto-scorable, an answer is
// present, and the answer matches the key: set equality for set-valued keys
// (order-independent, no extras, no omissions), exact value equality
// otherwise. Free-text questions always score zero here; they are graded
// manually elsewhere. There is no partial credit, and a malformed or
// type-mismatched answer is simply treated as non-matching.
func Grade(questions []model.Question, responses model.ResponseSet) Result {
	var r Result
	for _, q := range questions {
		r.MaxScore += q.Points

		if !q.QuestionType.AutoScorable() || q.CorrectAnswer == nil {
			continue
		}
		answer, ok := responses[q.ID]
		if !ok {
			continue
		}
		if answer.Matches(*q.CorrectAnswer) {
			r.Score += q.Points
		}
	}
	return r
}
