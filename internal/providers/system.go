package providers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"alerting-service/internal/models"
)

// SystemStore persists in-app message records. *db.DB implements it.
type SystemStore interface {
	HasSystemMessage(ctx context.Context, alertID uuid.UUID, target string) (bool, error)
	CreateSystemMessage(ctx context.Context, alertID uuid.UUID, userID int64, target, title, content string) error
}

// SystemHandler delivers in-app notifications: a stored message row plus a
// best-effort live WebSocket push. Idempotent across retries: an existing
// (alert, target) record makes the send a no-op.
type SystemHandler struct {
	store SystemStore
	hub   *Hub
}

func NewSystemHandler(store SystemStore, hub *Hub) *SystemHandler {
	return &SystemHandler{store: store, hub: hub}
}

func (h *SystemHandler) Channel() string { return models.ChannelSystem }

func (h *SystemHandler) Send(ctx context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient) error {
	exists, err := h.store.HasSystemMessage(ctx, alert.ID, n.Target)
	if err != nil {
		return fmt.Errorf("system message lookup: %w", err)
	}
	if !exists {
		if err := h.store.CreateSystemMessage(ctx, alert.ID, rcpt.UserID, n.Target, n.Title, n.Content); err != nil {
			return fmt.Errorf("system message insert: %w", err)
		}
	}

	if h.hub != nil {
		h.hub.Push(rcpt.UserID, map[string]interface{}{
			"type":    "alert",
			"number":  alert.Number,
			"level":   alert.Level,
			"title":   n.Title,
			"content": n.Content,
		})
	}
	return nil
}
