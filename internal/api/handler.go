package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"property-workflow-backend/internal/auth"
	"property-workflow-backend/internal/realtime"
	"property-workflow-backend/internal/store"
	"property-workflow-backend/internal/workflow"
)

// Services bundles the workflow services the handlers call.
type Services struct {
	Notices     *workflow.NoticeService
	Maintenance *workflow.MaintenanceService
	Approvals   *workflow.ApprovalService
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	services Services
	broker   realtime.Broker
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, services Services, broker realtime.Broker, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		services: services,
		broker:   broker,
		webpush:  webpushOptions,
	}
}

// actor returns the caller set by the auth middleware.
func actor(c *gin.Context) workflow.Actor {
	id, _ := auth.CurrentUser(c)
	return workflow.Actor{ID: id.UserID, Role: id.Role}
}
