package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/acadion/examgate-backend/internal/model"
	"github.com/acadion/examgate-backend/internal/store"
)

// PassingPercentage is the score threshold for a passing result.
const PassingPercentage = 70.0

// ExamCardStatus is the dashboard status string shown per exam.
type ExamCardStatus string

const (
	StatusNotStarted      ExamCardStatus = "Not Started"
	StatusPassed          ExamCardStatus = "Passed"
	StatusRetakeAvailable ExamCardStatus = "Failed, Retake available"
	StatusCompletedFailed ExamCardStatus = "Completed (Failed)"
)

// ExamCard is one dashboard entry: the exam plus the student's standing on it.
type ExamCard struct {
	Exam       model.Exam     `json:"exam"`
	Status     ExamCardStatus `json:"status"`
	Percentage *float64       `json:"percentage,omitempty"`
	CanRetake  bool           `json:"can_retake"`
}

// DashboardService assembles the student dashboard.
type DashboardService struct {
	examService *ExamService
	submissions store.SubmissionStore
	log         zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(examService *ExamService, submissions store.SubmissionStore, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		examService: examService,
		submissions: submissions,
		log:         log.With().Str("component", "dashboard_service").Logger(),
	}
}

// ListExamCards returns the student's department exams with derived status.
func (s *DashboardService) ListExamCards(ctx context.Context, studentID int, department string) ([]ExamCard, error) {
	exams, err := s.examService.ListByDepartment(ctx, department)
	if err != nil {
		return nil, err
	}

	cards := make([]ExamCard, 0, len(exams))
	for _, exam := range exams {
		rec, err := s.submissions.Get(ctx, studentID, exam.ID)
		if err != nil {
			return nil, fmt.Errorf("get submission for exam %s: %w", exam.ID, err)
		}
		cards = append(cards, buildCard(exam, rec))
	}
	return cards, nil
}

// buildCard derives the card status from the stored record, if any.
func buildCard(exam model.Exam, rec *model.SubmissionRecord) ExamCard {
	card := ExamCard{Exam: exam, Status: StatusNotStarted}
	if rec == nil {
		return card
	}

	pct := 0.0
	if rec.MaxScore > 0 {
		pct = rec.Score / rec.MaxScore * 100
	}
	card.Percentage = &pct
	card.CanRetake = rec.RetakeCount < exam.RetakeLimit

	switch {
	case pct >= PassingPercentage:
		card.Status = StatusPassed
	case card.CanRetake:
		card.Status = StatusRetakeAvailable
	default:
		card.Status = StatusCompletedFailed
	}
	return card
}
