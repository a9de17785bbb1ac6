package api

import (
	"github.com/gin-gonic/gin"

	"alerting-service/internal/config"
	"alerting-service/internal/logging"
)

// NewRouter wires the HTTP surface: read endpoints over alerts and
// notifications, human actions, and manual sweep triggers.
func NewRouter(logger *logging.Logger, cfg config.Config, h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", h.Health)
	r.GET("/ws/:user_id", h.WebSocket)

	base := r.Group(cfg.API.BasePath)
	{
		base.GET("/alerts", h.ListAlerts)
		base.GET("/alerts/:id", h.GetAlert)
		base.GET("/alerts/:id/notifications", h.ListAlertNotifications)
		base.POST("/alerts/:id/ack", h.AcknowledgeAlert)
		base.POST("/alerts/:id/resolve", h.ResolveAlert)
		base.POST("/sweeps/escalation", h.RunEscalationSweep)
		base.POST("/sweeps/retry", h.RunRetrySweep)
	}
	return r
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debugf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}
