package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"property-workflow-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers the caller's browser for web push, taking over
// the endpoint if another user registered it before.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   actor(c).ID,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.UpsertPushSubscription(c.Request.Context(), &sub); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's push endpoints.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.DeletePushSubscription(c.Request.Context(), actor(c).ID, req.Endpoint); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubscriptions returns the endpoints registered by the caller.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.store.ListPushSubscriptions(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	endpoints := make([]string, 0, len(subs))
	for _, s := range subs {
		endpoints = append(endpoints, s.Endpoint)
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints})
}
