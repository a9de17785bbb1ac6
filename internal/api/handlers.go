package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"alerting-service/internal/db"
	"alerting-service/internal/dispatch"
	"alerting-service/internal/engine"
	"alerting-service/internal/logging"
	"alerting-service/internal/models"
	"alerting-service/internal/providers"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler serves the HTTP surface over the alerting core.
type Handler struct {
	db      *db.DB
	sweeper *engine.Sweeper
	retrier *dispatch.RetryScheduler
	hub     *providers.Hub
	logger  *logging.Logger
}

func NewHandler(database *db.DB, sweeper *engine.Sweeper, retrier *dispatch.RetryScheduler, hub *providers.Hub, logger *logging.Logger) *Handler {
	return &Handler{db: database, sweeper: sweeper, retrier: retrier, hub: hub, logger: logger}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")

	alerts, total, err := h.db.ListAlerts(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.logger.Errorf("list alerts failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": total})
}

func (h *Handler) GetAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}
	alert, err := h.db.GetAlert(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		h.logger.Errorf("get alert %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get alert"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) ListAlertNotifications(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}
	list, err := h.db.ListNotificationsByAlert(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("list notifications for alert %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	h.setAlertStatus(c, models.StatusAcknowledged)
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	h.setAlertStatus(c, models.StatusResolved)
}

func (h *Handler) setAlertStatus(c *gin.Context, status string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}
	if err := h.db.UpdateAlertStatus(c.Request.Context(), id, status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found or closed"})
			return
		}
		h.logger.Errorf("update alert %s status failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) RunEscalationSweep(c *gin.Context) {
	result := h.sweeper.Run(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RunRetrySweep(c *gin.Context) {
	result := h.retrier.Run(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

// WebSocket registers a live in-app connection for a user.
func (h *Handler) WebSocket(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade for user %d failed: %v", userID, err)
		return
	}
	h.hub.Add(userID, conn)
	defer func() {
		h.hub.Remove(userID, conn)
		_ = conn.Close()
	}()

	// Hold the connection open; we only push, never read payloads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
