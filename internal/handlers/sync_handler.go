package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/services"
	"github.com/classpulse/quiz-session-engine/internal/utils"
)

type SyncHandler struct {
	BaseHandler
	outboxService services.OutboxService
	conn          *events.Connectivity
}

func NewSyncHandler(
	outboxService services.OutboxService,
	conn *events.Connectivity,
	logger utils.Logger,
) *SyncHandler {
	return &SyncHandler{
		BaseHandler:   NewBaseHandler(logger),
		outboxService: outboxService,
		conn:          conn,
	}
}

// TriggerSync pushes all queued submissions to the remote store
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	h.LogRequest(c, "Triggering outbox sync")

	result, err := h.outboxService.Sync(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Sync completed",
		Data:    result,
	})
}

// GetPending lists queued submissions awaiting sync
func (h *SyncHandler) GetPending(c *gin.Context) {
	entries, err := h.outboxService.Pending(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Pending submissions retrieved",
		Data:    entries,
	})
}

// ReportConnectivity records an online/offline transition
func (h *SyncHandler) ReportConnectivity(c *gin.Context) {
	var req services.ConnectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Connectivity reported", "online", req.Online)
	h.conn.Report(c.Request.Context(), req.Online)

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Connectivity recorded",
		Data:    gin.H{"online": h.conn.Online()},
	})
}
