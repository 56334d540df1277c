package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/workflow"
)

// SubmitApproval handles POST /api/approvals.
func (h *Handler) SubmitApproval(c *gin.Context) {
	var req workflow.ApprovalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.services.Approvals.Submit(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListApprovals handles GET /api/approvals?type=&status=&search=&limit=.
func (h *Handler) ListApprovals(c *gin.Context) {
	filter := workflow.ApprovalFilter{
		Type:   c.Query("type"),
		Status: model.ApprovalStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer", "field": "limit"})
			return
		}
		filter.Limit = limit
	}
	approvals, err := h.services.Approvals.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, approvals)
}

// GetApproval handles GET /api/approvals/:id.
func (h *Handler) GetApproval(c *gin.Context) {
	a, err := h.services.Approvals.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// StartApprovalReview handles POST /api/approvals/:id/review.
func (h *Handler) StartApprovalReview(c *gin.Context) {
	a, err := h.services.Approvals.StartReview(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type approveRequest struct {
	Response string `json:"response"`
}

// ApproveApproval handles POST /api/approvals/:id/approve.
func (h *Handler) ApproveApproval(c *gin.Context) {
	var req approveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	a, err := h.services.Approvals.Approve(c.Request.Context(), actor(c), c.Param("id"), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// RejectApproval handles POST /api/approvals/:id/reject.
func (h *Handler) RejectApproval(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.services.Approvals.Reject(c.Request.Context(), actor(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
