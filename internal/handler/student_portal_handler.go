package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/acadion/examgate-backend/internal/middleware"
	"github.com/acadion/examgate-backend/internal/model"
	"github.com/acadion/examgate-backend/internal/proctor"
	"github.com/acadion/examgate-backend/internal/response"
	"github.com/acadion/examgate-backend/internal/service"
	"github.com/acadion/examgate-backend/internal/session"
	"github.com/acadion/examgate-backend/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints (dashboard, exam
// taking).
type StudentPortalHandler struct {
	sessionService   *service.SessionService
	examService      *service.ExamService
	dashboardService *service.DashboardService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.SessionService,
	examService *service.ExamService,
	dashboardService *service.DashboardService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService:   sessionService,
		examService:      examService,
		dashboardService: dashboardService,
	}
}

// GetDashboard godoc
// GET /api/v1/student/dashboard
// Returns the student's department exams with per-exam standing.
func (h *StudentPortalHandler) GetDashboard(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	cards, err := h.dashboardService.ListExamCards(c.Request.Context(), claims.StudentID, claims.Department)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": cards})
}

// GetExamPaper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Returns the cached exam payload. Correct answers are never included.
func (h *StudentPortalHandler) GetExamPaper(c *gin.Context) {
	examID, ok := h.examIDParam(c)
	if !ok {
		return
	}

	payload, err := h.examService.GetExamPayload(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotAvailable) || errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempt
// Starts (or reattaches to) the attempt and returns its current view.
// A student with a stored submission lands directly on the result screen.
func (h *StudentPortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := h.examIDParam(c)
	if !ok {
		return
	}

	eng, err := h.sessionService.StartAttempt(c.Request.Context(), claims.StudentID, examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotAvailable) || errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.respondSnapshot(c, eng)
}

// GetSnapshot godoc
// GET /api/v1/student/exams/:exam_id/attempt
// Returns the current attempt view for reattaching clients.
func (h *StudentPortalHandler) GetSnapshot(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}
	h.respondSnapshot(c, eng)
}

// Navigate godoc
// POST /api/v1/student/exams/:exam_id/attempt/navigate
// Moves the question cursor. Out-of-range targets are ignored.
func (h *StudentPortalHandler) Navigate(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eng.NavigateTo(*req.Index)
	h.respondSnapshot(c, eng)
}

// SubmitAnswer godoc
// POST /api/v1/student/exams/:exam_id/attempt/answers
// Records or overwrites the answer to one question.
func (h *StudentPortalHandler) SubmitAnswer(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eng.SetAnswer(req.QuestionID, req.Answer)
	h.respondSnapshot(c, eng)
}

// ToggleFlag godoc
// POST /api/v1/student/exams/:exam_id/attempt/flags
// Toggles the review flag on a question.
func (h *StudentPortalHandler) ToggleFlag(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	var req model.FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eng.ToggleFlag(req.QuestionID)
	h.respondSnapshot(c, eng)
}

type violationRequest struct {
	Signal string `json:"signal" binding:"required"`
}

// ReportViolation godoc
// POST /api/v1/student/exams/:exam_id/attempt/violations
// Records a proctoring signal observed by the client. Unknown signals are
// ignored.
func (h *StudentPortalHandler) ReportViolation(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	var req violationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eng.ObserveSignal(proctor.Signal(req.Signal))
	h.respondSnapshot(c, eng)
}

// DismissWarning godoc
// POST /api/v1/student/exams/:exam_id/attempt/warning/dismiss
// Clears the pending violation warning.
func (h *StudentPortalHandler) DismissWarning(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	eng.DismissViolationWarning()
	h.respondSnapshot(c, eng)
}

// Submit godoc
// POST /api/v1/student/exams/:exam_id/attempt/submit
// Finalizes the attempt and returns the graded record. Submitting an
// already-finished attempt returns the existing result.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	rec, err := eng.RequestSubmit(c.Request.Context())
	if err != nil {
		if errors.Is(err, session.ErrPersistenceWrite) {
			// Graded but not durably stored. The result stands; warn the client.
			response.Success(c, http.StatusOK, gin.H{
				"result":  rec,
				"durable": false,
				"warning": response.GetMessage(response.ErrResultNotSaved),
			})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if rec == nil {
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotFinished)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": rec, "durable": true})
}

// Retake godoc
// POST /api/v1/student/exams/:exam_id/attempt/retake
// Starts a fresh attempt after a finished one, consuming one retake.
func (h *StudentPortalHandler) Retake(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	if err := eng.Retake(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, session.ErrRetakeLimitExceeded):
			response.Fail(c, http.StatusConflict, response.ErrRetakeLimitExceeded)
		case errors.Is(err, session.ErrNotFinished):
			response.Fail(c, http.StatusConflict, response.ErrAttemptNotFinished)
		case errors.Is(err, session.ErrPersistenceWrite):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrResultNotSaved)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	h.respondSnapshot(c, eng)
}

// GetResult godoc
// GET /api/v1/student/exams/:exam_id/attempt/result
// Returns the graded record of a finished attempt.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	eng, ok := h.engineFor(c)
	if !ok {
		return
	}

	rec, done := eng.Result()
	if !done {
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotFinished)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam_title":   eng.Exam().Title,
		"completed_at": rec.SubmissionDate,
		"result":       rec,
	})
}

// ─── Helpers ────────────────────────────────────────────────────────

func (h *StudentPortalHandler) examIDParam(c *gin.Context) (uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return examID, true
}

// engineFor resolves the live engine for the authenticated student and the
// exam in the path.
func (h *StudentPortalHandler) engineFor(c *gin.Context) (*session.Engine, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	examID, ok := h.examIDParam(c)
	if !ok {
		return nil, false
	}

	eng, err := h.sessionService.GetEngine(claims.StudentID, examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotStarted)
		return nil, false
	}
	return eng, true
}

func (h *StudentPortalHandler) respondSnapshot(c *gin.Context, eng *session.Engine) {
	response.Success(c, http.StatusOK, gin.H{"attempt": eng.Snapshot()})
}
