package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/quiz-session-engine/internal/services"
	"github.com/classpulse/quiz-session-engine/internal/utils"
	"github.com/classpulse/quiz-session-engine/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
	}
}

// OpenSession opens (or replays) a session for a quiz scope
func (h *SessionHandler) OpenSession(c *gin.Context) {
	h.LogRequest(c, "Opening quiz session")

	var req services.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.sessionService.Open(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Session opened",
		Data:    view,
	})
}

// GetSession returns the current session snapshot
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")

	view, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session retrieved",
		Data:    view,
	})
}

// SubmitAnswer records the answer for the current question
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID := c.Param("id")
	h.LogRequest(c, "Recording answer", "session_id", sessionID)

	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	feedback, err := h.sessionService.Answer(c.Request.Context(), sessionID, req.Answer)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Answer recorded",
		Data:    feedback,
	})
}

// ConfirmMatching locks in the matching answer for the current question
func (h *SessionHandler) ConfirmMatching(c *gin.Context) {
	sessionID := c.Param("id")
	h.LogRequest(c, "Confirming matching answer", "session_id", sessionID)

	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	feedback, err := h.sessionService.ConfirmMatching(c.Request.Context(), sessionID, req.Answer)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Matching answer confirmed",
		Data:    feedback,
	})
}

// NextQuestion advances the session; past the last question it submits
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	sessionID := c.Param("id")
	h.LogRequest(c, "Advancing session", "session_id", sessionID)

	view, err := h.sessionService.Next(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session advanced",
		Data:    view,
	})
}

// SubmitSession grades and queues the current attempt
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.LogRequest(c, "Submitting session", "session_id", sessionID)

	view, err := h.sessionService.Submit(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt submitted",
		Data:    view,
	})
}

// ReviewSession moves a submitted session into review
func (h *SessionHandler) ReviewSession(c *gin.Context) {
	sessionID := c.Param("id")

	view, err := h.sessionService.Review(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session in review",
		Data:    view,
	})
}

// StartNewAttempt begins another attempt if any remain
func (h *SessionHandler) StartNewAttempt(c *gin.Context) {
	sessionID := c.Param("id")
	h.LogRequest(c, "Starting new attempt", "session_id", sessionID)

	view, err := h.sessionService.StartNewAttempt(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "New attempt started",
		Data:    view,
	})
}

// ReportSignal feeds one platform signal into the session
func (h *SessionHandler) ReportSignal(c *gin.Context) {
	sessionID := c.Param("id")

	var req services.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Processing signal", "session_id", sessionID, "signal", req.Type)

	view, err := h.sessionService.Signal(c.Request.Context(), sessionID, req.Type)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Signal processed",
		Data:    view,
	})
}

// CloseSession releases the session
func (h *SessionHandler) CloseSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.LogRequest(c, "Closing session", "session_id", sessionID)

	if err := h.sessionService.Close(c.Request.Context(), sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session closed",
	})
}
