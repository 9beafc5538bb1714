package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/acadion/examgate-backend/internal/model"
)

func key(a model.Answer) *model.Answer {
	return &a
}

func TestGradeMixedPaper(t *testing.T) {
	q1 := uuid.New()
	q2 := uuid.New()
	q3 := uuid.New()
	q4 := uuid.New()

	questions := []model.Question{
		{ID: q1, QuestionType: model.QuestionTypeSingleChoice, Points: 2, CorrectAnswer: key(model.OptionAnswer("b"))},
		{ID: q2, QuestionType: model.QuestionTypeMultiChoice, Points: 3, CorrectAnswer: key(model.OptionSetAnswer("a", "c"))},
		{ID: q3, QuestionType: model.QuestionTypeShortAnswer, Points: 2},
		{ID: q4, QuestionType: model.QuestionTypeEssay, Points: 5},
	}

	responses := model.ResponseSet{
		q1: model.OptionAnswer("b"),
		q2: model.OptionSetAnswer("c", "a"),
		q3: model.OptionAnswer("domain name system"),
		q4: model.OptionAnswer("long essay text"),
	}

	got := Grade(questions, responses)
	if got.Score != 5 {
		t.Errorf("Score = %v, want 5 (2 for single choice + 3 for multi choice)", got.Score)
	}
	if got.MaxScore != 12 {
		t.Errorf("MaxScore = %v, want 12", got.MaxScore)
	}
}

func TestGradeNoPartialCredit(t *testing.T) {
	qid := uuid.New()
	questions := []model.Question{
		{ID: qid, QuestionType: model.QuestionTypeMultiChoice, Points: 3, CorrectAnswer: key(model.OptionSetAnswer("a", "c"))},
	}

	cases := []struct {
		name   string
		answer model.Answer
		want   float64
	}{
		{"exact match", model.OptionSetAnswer("a", "c"), 3},
		{"subset", model.OptionSetAnswer("a"), 0},
		{"superset", model.OptionSetAnswer("a", "c", "d"), 0},
		{"wrong type", model.OptionAnswer("a"), 0},
	}
	for _, tc := range cases {
		got := Grade(questions, model.ResponseSet{qid: tc.answer})
		if got.Score != tc.want {
			t.Errorf("%s: Score = %v, want %v", tc.name, got.Score, tc.want)
		}
	}
}

func TestGradeUnansweredScoresZero(t *testing.T) {
	questions := []model.Question{
		{ID: uuid.New(), QuestionType: model.QuestionTypeSingleChoice, Points: 2, CorrectAnswer: key(model.OptionAnswer("a"))},
	}

	got := Grade(questions, model.ResponseSet{})
	if got.Score != 0 {
		t.Errorf("Score = %v, want 0", got.Score)
	}
	if got.MaxScore != 2 {
		t.Errorf("MaxScore = %v, want 2", got.MaxScore)
	}
}

func TestGradeNilKeySkipped(t *testing.T) {
	qid := uuid.New()
	questions := []model.Question{
		{ID: qid, QuestionType: model.QuestionTypeSingleChoice, Points: 2},
	}

	got := Grade(questions, model.ResponseSet{qid: model.OptionAnswer("a")})
	if got.Score != 0 {
		t.Errorf("Score = %v, want 0 for a question without a key", got.Score)
	}
	if got.MaxScore != 2 {
		t.Errorf("MaxScore = %v, want 2", got.MaxScore)
	}
}

func TestGradeFreeTextNeverScored(t *testing.T) {
	qid := uuid.New()
	// Even a free-text question that somehow carries a key must not be
	// auto-scored.
	questions := []model.Question{
		{ID: qid, QuestionType: model.QuestionTypeEssay, Points: 5, CorrectAnswer: key(model.OptionAnswer("x"))},
	}

	got := Grade(questions, model.ResponseSet{qid: model.OptionAnswer("x")})
	if got.Score != 0 {
		t.Errorf("Score = %v, want 0 for essay question", got.Score)
	}
}

func TestGradeEmptyPaper(t *testing.T) {
	got := Grade(nil, nil)
	if got.Score != 0 || got.MaxScore != 0 {
		t.Errorf("empty paper graded as %+v, want zeros", got)
	}
}
