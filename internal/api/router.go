package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"property-workflow-backend/config"
	"property-workflow-backend/internal/mw"
	"property-workflow-backend/internal/realtime"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, h *Handler, verifier mw.TokenVerifier) *gin.Engine {
	r := gin.Default()

	if len(cfg.AllowedOrigins) == 0 {
		r.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = cfg.AllowedOrigins
		cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", "Idempotency-Key")
		cc.AllowCredentials = true
		r.Use(cors.New(cc))
	}

	responseCache := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	if h.broker != nil {
		h.broker.OnEvent(func(realtime.Event) { responseCache.Flush() })
	}
	caching := responseCache.Handler()

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	public := r.Group("/api")
	public.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	api := r.Group("/api")
	api.Use(mw.Auth(verifier), mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	{
		api.GET("/realtime", h.Realtime)

		notices := api.Group("/notices")
		notices.POST("", h.SubmitNotice)
		notices.GET("", caching, h.ListNotices)
		notices.GET("/:id", caching, h.GetNotice)
		notices.POST("/:id/schedule", h.ScheduleInspection)
		notices.POST("/:id/reject", h.RejectNotice)
		notices.POST("/:id/complete", h.CompleteNotice)
		notices.GET("/:id/messages", caching, h.ListMessages)
		notices.POST("/:id/messages", h.PostMessage)

		maintenance := api.Group("/maintenance")
		maintenance.POST("", h.CreateMaintenanceRequest)
		maintenance.GET("", caching, h.ListMaintenanceRequests)
		maintenance.GET("/:id", caching, h.GetMaintenanceRequest)
		maintenance.POST("/:id/assign", h.AssignTechnician)
		maintenance.POST("/:id/start", h.StartJob)
		maintenance.POST("/:id/complete", h.CompleteJob)
		maintenance.GET("/:id/report", caching, h.GetCompletionReport)

		approvals := api.Group("/approvals")
		approvals.POST("", h.SubmitApproval)
		approvals.GET("", caching, h.ListApprovals)
		approvals.GET("/:id", caching, h.GetApproval)
		approvals.POST("/:id/review", h.StartApprovalReview)
		approvals.POST("/:id/approve", h.ApproveApproval)
		approvals.POST("/:id/reject", h.RejectApproval)

		notifications := api.Group("/notifications")
		notifications.GET("", caching, h.ListNotifications)
		notifications.GET("/unread_count", caching, h.CountUnreadNotifications)
		notifications.POST("/read_all", h.MarkAllNotificationsRead)
		notifications.POST("/:id/read", h.MarkNotificationRead)

		api.GET("/subscriptions", h.ListSubscriptions)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
