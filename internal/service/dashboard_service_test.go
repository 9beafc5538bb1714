package service

import (
	"testing"

	"github.com/acadion/examgate-backend/internal/model"
)

func TestBuildCardStatus(t *testing.T) {
	exam := model.Exam{RetakeLimit: 1}

	rec := func(score, max float64, retakes int) *model.SubmissionRecord {
		return &model.SubmissionRecord{Score: score, MaxScore: max, RetakeCount: retakes}
	}

	cases := []struct {
		name       string
		rec        *model.SubmissionRecord
		wantStatus ExamCardStatus
		wantRetake bool
	}{
		{"no record", nil, StatusNotStarted, false},
		{"passed at threshold", rec(7, 10, 0), StatusPassed, true},
		{"passed above threshold", rec(9, 10, 1), StatusPassed, false},
		{"failed with retake left", rec(3, 10, 0), StatusRetakeAvailable, true},
		{"failed retakes exhausted", rec(3, 10, 1), StatusCompletedFailed, false},
		{"zero max score", rec(0, 0, 1), StatusCompletedFailed, false},
	}

	for _, tc := range cases {
		card := buildCard(exam, tc.rec)
		if card.Status != tc.wantStatus {
			t.Errorf("%s: status = %q, want %q", tc.name, card.Status, tc.wantStatus)
		}
		if card.CanRetake != tc.wantRetake {
			t.Errorf("%s: can_retake = %v, want %v", tc.name, card.CanRetake, tc.wantRetake)
		}
	}
}

func TestBuildCardPercentage(t *testing.T) {
	exam := model.Exam{RetakeLimit: 0}

	card := buildCard(exam, &model.SubmissionRecord{Score: 5, MaxScore: 8})
	if card.Percentage == nil {
		t.Fatal("percentage missing for recorded submission")
	}
	if got := *card.Percentage; got != 62.5 {
		t.Errorf("percentage = %v, want 62.5", got)
	}

	if buildCard(exam, nil).Percentage != nil {
		t.Error("percentage should be absent without a record")
	}
}
