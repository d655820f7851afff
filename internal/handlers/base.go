package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/quiz-session-engine/internal/services"
	"github.com/classpulse/quiz-session-engine/internal/utils"
)

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is the standard success body
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries shared handler utilities
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with its request id
func (h *BaseHandler) LogRequest(c *gin.Context, message string, args ...interface{}) {
	requestID, _ := c.Get("request_id")
	logArgs := append([]interface{}{"request_id", requestID, "path", c.Request.URL.Path}, args...)
	h.logger.Info(message, logArgs...)
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationError.Errors,
		})
		return
	}

	var integrityError *services.IntegrityError
	if errors.As(err, &integrityError) {
		c.JSON(http.StatusLocked, ErrorResponse{
			Message: "Quiz locked",
			Details: integrityError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Quiz not found"})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found"})
	case errors.Is(err, services.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Profile not found"})
	case errors.Is(err, services.ErrSessionLocked):
		c.JSON(http.StatusLocked, ErrorResponse{Message: "Session is locked"})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Session is not in progress"})
	case errors.Is(err, services.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt already submitted"})
	case errors.Is(err, services.ErrQuestionAnswered):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Question already answered"})
	case errors.Is(err, services.ErrNoAttemptsLeft):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "No attempts remaining"})
	case errors.Is(err, services.ErrPreviewReadOnly):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Preview sessions cannot submit"})
	case errors.Is(err, services.ErrQuizUnavailable):
		c.JSON(http.StatusGone, ErrorResponse{Message: "Quiz is not available"})
	case errors.Is(err, services.ErrUnknownSignal):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unknown signal type"})
	case errors.Is(err, services.ErrTransientNetwork):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Remote store unreachable, try again later",
		})
	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
