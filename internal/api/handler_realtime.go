package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/workflow"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS configuration and the bearer token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// splitTopic parses "<table>:<column>=<value>".
func splitTopic(topic string) (table, column, value string, ok bool) {
	table, rest, ok := strings.Cut(topic, ":")
	if !ok {
		return "", "", "", false
	}
	column, value, ok = strings.Cut(rest, "=")
	if !ok || table == "" || column == "" || value == "" {
		return "", "", "", false
	}
	return table, column, value, true
}

// authorizeTopic decides whether the caller may watch topic.
func (h *Handler) authorizeTopic(ctx context.Context, who workflow.Actor, topic string) error {
	table, column, value, ok := splitTopic(topic)
	if !ok {
		return errInvalidTopic
	}
	if who.Role == model.RoleSuperAdmin && table != "notifications" {
		return nil
	}

	switch {
	case table == "notifications" && column == "recipient_id":
		if value == who.ID {
			return nil
		}
	case table == "vacancy_notice_messages" && column == "vacancy_notice_id",
		table == "vacancy_notices" && column == "id":
		return h.services.Notices.CanWatchThread(ctx, who, value)
	case table == "maintenance_requests" && column == "id":
		_, err := h.services.Maintenance.Get(ctx, who, value)
		return err
	case table == "approvals" && column == "id":
		_, err := h.services.Approvals.Get(ctx, who, value)
		return err
	case (table == "vacancy_notices" || table == "maintenance_requests") && column == "property_id":
		ok, err := h.store.IsPropertyStaff(ctx, value, who.ID, model.RolePropertyManager)
		if err != nil {
			return err
		}
		if ok && who.Role == model.RolePropertyManager {
			return nil
		}
	}
	return workflow.ErrForbidden
}

var errInvalidTopic = errors.New("topic must look like <table>:<column>=<value>")

// Realtime handles GET /api/realtime?topic=. It upgrades to a websocket and
// streams change events for the topic as JSON until the client goes away.
func (h *Handler) Realtime(c *gin.Context) {
	topic := c.Query("topic")
	who := actor(c)
	if err := h.authorizeTopic(c.Request.Context(), who, topic); err != nil {
		if errors.Is(err, errInvalidTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "topic"})
			return
		}
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("realtime: upgrade failed for %s: %v", who.ID, err)
		return
	}
	defer conn.Close()

	events, cancel := h.broker.Subscribe(topic)
	defer cancel()

	// The client never sends data; reading only services control frames and
	// notices when the connection drops.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
