package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/services"
	"github.com/classpulse/quiz-session-engine/internal/utils"
	"github.com/classpulse/quiz-session-engine/internal/validator"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	syncHandler    *SyncHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	conn *events.Connectivity,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), validator, logger),
		syncHandler:    NewSyncHandler(serviceManager.Outbox(), conn, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.OpenSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.CloseSession)
			sessions.POST("/:id/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:id/matching/confirm", hm.sessionHandler.ConfirmMatching)
			sessions.POST("/:id/next", hm.sessionHandler.NextQuestion)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.POST("/:id/review", hm.sessionHandler.ReviewSession)
			sessions.POST("/:id/attempts", hm.sessionHandler.StartNewAttempt)
			sessions.POST("/:id/signals", hm.sessionHandler.ReportSignal)
		}

		sync := v1.Group("/sync")
		{
			sync.POST("", hm.syncHandler.TriggerSync)
			sync.GET("/pending", hm.syncHandler.GetPending)
		}

		v1.POST("/connectivity", hm.syncHandler.ReportConnectivity)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "quiz-session-engine",
		})
	})
}
