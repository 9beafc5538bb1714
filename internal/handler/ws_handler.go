package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/acadion/examgate-backend/internal/middleware"
	"github.com/acadion/examgate-backend/internal/proctor"
	"github.com/acadion/examgate-backend/internal/service"
	"github.com/acadion/examgate-backend/internal/session"
	ws "github.com/acadion/examgate-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live attempt WebSocket stream.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Streams attempt commands over a WebSocket: answers, navigation, flags,
// proctoring signals, and submit.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	eng, err := h.sessionService.GetEngine(claims.StudentID, examID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not started"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", claims.StudentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		data, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, eng, data)
		case ws.ActionNavigate:
			h.handleNavigate(conn, eng, data)
		case ws.ActionFlag:
			h.handleFlag(conn, eng, data)
		case ws.ActionViolation:
			h.handleViolation(conn, eng, data)
		case ws.ActionDismiss:
			eng.DismissViolationWarning()
			h.writeSnapshot(conn, eng)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, eng)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, eng *session.Engine, data []byte) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.WriteError(conn, "malformed answer payload")
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}

	eng.SetAnswer(questionID, req.Answer)

	// Push the draft out immediately so a crash loses at most one answer.
	if err := eng.FlushAutosave(context.Background()); err != nil {
		h.log.Warn().Err(err).Msg("Autosave flush failed")
	}

	h.writeSnapshot(conn, eng)
}

func (h *WSHandler) handleNavigate(conn *websocket.Conn, eng *session.Engine, data []byte) {
	var req ws.NavigateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.WriteError(conn, "malformed navigate payload")
		return
	}

	eng.NavigateTo(req.Index)
	h.writeSnapshot(conn, eng)
}

func (h *WSHandler) handleFlag(conn *websocket.Conn, eng *session.Engine, data []byte) {
	var req ws.FlagRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.WriteError(conn, "malformed flag payload")
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}

	eng.ToggleFlag(questionID)
	h.writeSnapshot(conn, eng)
}

func (h *WSHandler) handleViolation(conn *websocket.Conn, eng *session.Engine, data []byte) {
	var req ws.ViolationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.WriteError(conn, "malformed violation payload")
		return
	}

	eng.ObserveSignal(proctor.Signal(req.Signal))

	snap := eng.Snapshot()
	if snap.ViolationMessage != "" {
		ws.WriteTyped(conn, ws.WarningResponse{Event: ws.EventWarning, Message: snap.ViolationMessage})
		return
	}
	h.writeSnapshot(conn, eng)
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, eng *session.Engine) {
	rec, err := eng.RequestSubmit(context.Background())
	if err != nil && !errors.Is(err, session.ErrPersistenceWrite) {
		wsLog.Error().Err(err).Msg("Submit failed")
		ws.WriteError(conn, "submit failed")
		return
	}
	if rec == nil {
		ws.WriteError(conn, "attempt not in progress")
		return
	}

	status := "completed"
	if err != nil {
		// Graded in memory but the durable write did not go through.
		status = "completed_unsaved"
		wsLog.Warn().Err(err).Msg("Submission graded but not durably stored")
	}

	wsLog.Info().
		Float64("score", rec.Score).
		Float64("max_score", rec.MaxScore).
		Msg("Exam submitted and graded")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:    ws.EventGraded,
		Status:   status,
		Score:    rec.Score,
		MaxScore: rec.MaxScore,
	})
}

func (h *WSHandler) writeSnapshot(conn *websocket.Conn, eng *session.Engine) {
	type snapshotResponse struct {
		Event    ws.Event         `json:"event"`
		Snapshot session.Snapshot `json:"snapshot"`
	}
	ws.WriteTyped(conn, snapshotResponse{Event: ws.EventSnapshot, Snapshot: eng.Snapshot()})
}
