package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/workflow"
)

type submitNoticeRequest struct {
	PropertyID  string    `json:"property_id" binding:"required"`
	UnitID      string    `json:"unit_id"`
	MoveOutDate time.Time `json:"move_out_date" binding:"required"`
	Reason      string    `json:"reason" binding:"required"`
}

// SubmitNotice handles POST /api/notices.
func (h *Handler) SubmitNotice(c *gin.Context) {
	var req submitNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	notice, err := h.services.Notices.Submit(c.Request.Context(), actor(c), workflow.NoticeInput{
		PropertyID:  req.PropertyID,
		UnitID:      req.UnitID,
		MoveOutDate: req.MoveOutDate,
		Reason:      req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notice)
}

// ListNotices handles GET /api/notices?status=.
func (h *Handler) ListNotices(c *gin.Context) {
	notices, err := h.services.Notices.List(c.Request.Context(), actor(c), model.NoticeStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notices)
}

// GetNotice handles GET /api/notices/:id.
func (h *Handler) GetNotice(c *gin.Context) {
	notice, err := h.services.Notices.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notice)
}

type scheduleInspectionRequest struct {
	InspectionDate *time.Time `json:"inspection_date"`
	Note           string     `json:"note"`
}

// ScheduleInspection handles POST /api/notices/:id/schedule.
func (h *Handler) ScheduleInspection(c *gin.Context) {
	var req scheduleInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	notice, err := h.services.Notices.ScheduleInspection(c.Request.Context(), actor(c), c.Param("id"), req.InspectionDate, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notice)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// RejectNotice handles POST /api/notices/:id/reject.
func (h *Handler) RejectNotice(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	notice, err := h.services.Notices.Reject(c.Request.Context(), actor(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notice)
}

type noteRequest struct {
	Note string `json:"note"`
}

// CompleteNotice handles POST /api/notices/:id/complete.
func (h *Handler) CompleteNotice(c *gin.Context) {
	var req noteRequest
	// The note is optional, so an empty body is fine.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	notice, err := h.services.Notices.Complete(c.Request.Context(), actor(c), c.Param("id"), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notice)
}

type postMessageRequest struct {
	Message   string `json:"message"`
	ClientKey string `json:"client_key"`
}

// PostMessage handles POST /api/notices/:id/messages. A retry carrying the
// same client_key answers 200 with the stored message instead of 201.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if key := c.GetHeader("Idempotency-Key"); req.ClientKey == "" && key != "" {
		req.ClientKey = key
	}
	msg, err := h.services.Notices.PostMessage(c.Request.Context(), actor(c), c.Param("id"), req.Message, req.ClientKey)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if msg.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, msg)
}

// ListMessages handles GET /api/notices/:id/messages.
func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.services.Notices.ListMessages(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
