package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"property-workflow-backend/internal/realtime"
)

const defaultNotificationLimit = 50

// ListNotifications handles GET /api/notifications?unread=true&limit=.
func (h *Handler) ListNotifications(c *gin.Context) {
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "field": "limit"})
			return
		}
		limit = min(n, 200)
	}
	unreadOnly := c.Query("unread") == "true"

	rows, err := h.store.ListNotifications(c.Request.Context(), actor(c).ID, unreadOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// CountUnreadNotifications handles GET /api/notifications/unread_count.
func (h *Handler) CountUnreadNotifications(c *gin.Context) {
	n, err := h.store.CountUnread(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

// MarkNotificationRead handles POST /api/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.store.MarkNotificationRead(c.Request.Context(), actor(c).ID, c.Param("id"), time.Now().UTC()); err != nil {
		respondError(c, err)
		return
	}
	h.notificationsChanged(c, c.Param("id"))
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read_all.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.store.MarkAllNotificationsRead(c.Request.Context(), actor(c).ID, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	if n > 0 {
		h.notificationsChanged(c, "")
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// notificationsChanged tells the caller's other sessions that read state moved.
func (h *Handler) notificationsChanged(c *gin.Context, id string) {
	if h.broker == nil {
		return
	}
	recipient := actor(c).ID
	h.broker.Publish(c.Request.Context(), realtime.Event{
		Topic:    realtime.Topic("notifications", "recipient_id", recipient),
		Table:    "notifications",
		Action:   realtime.ActionUpdate,
		RecordID: id,
	})
}
