package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"property-workflow-backend/internal/model"
	"property-workflow-backend/internal/storage"
	"property-workflow-backend/internal/workflow"
)

const maxPhotoBytes = 10 << 20

// CreateMaintenanceRequest handles POST /api/maintenance.
func (h *Handler) CreateMaintenanceRequest(c *gin.Context) {
	var req workflow.RequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.services.Maintenance.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListMaintenanceRequests handles GET /api/maintenance?status=.
func (h *Handler) ListMaintenanceRequests(c *gin.Context) {
	list, err := h.services.Maintenance.List(c.Request.Context(), actor(c), model.MaintenanceStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetMaintenanceRequest handles GET /api/maintenance/:id.
func (h *Handler) GetMaintenanceRequest(c *gin.Context) {
	req, err := h.services.Maintenance.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

type assignRequest struct {
	TechnicianID  string     `json:"technician_id" binding:"required"`
	ScheduledDate *time.Time `json:"scheduled_date"`
}

// AssignTechnician handles POST /api/maintenance/:id/assign.
func (h *Handler) AssignTechnician(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := h.services.Maintenance.Assign(c.Request.Context(), actor(c), c.Param("id"), req.TechnicianID, req.ScheduledDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// StartJob handles POST /api/maintenance/:id/start. The optional before
// photo is sent as multipart field before_photo.
func (h *Handler) StartJob(c *gin.Context) {
	photo, closePhoto, err := formPhoto(c, "before_photo")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer closePhoto()

	updated, err := h.services.Maintenance.StartJob(c.Request.Context(), actor(c), c.Param("id"), photo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// formNumber holds a numeric report field as sent. Clients send either a JSON
// number or a string; the workflow parses both the same strict way.
type formNumber string

func (n *formNumber) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = formNumber(s)
		return nil
	}
	*n = formNumber(b)
	return nil
}

type completeJobRequest struct {
	Notes         string     `json:"notes"`
	HoursSpent    formNumber `json:"hours_spent"`
	MaterialsUsed string     `json:"materials_used"`
	ActualCost    formNumber `json:"actual_cost"`
}

// CompleteJob handles POST /api/maintenance/:id/complete. It accepts either
// a JSON report or a multipart form with an optional after_photo.
func (h *Handler) CompleteJob(c *gin.Context) {
	var in workflow.ReportInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in = workflow.ReportInput{
			Notes:         c.PostForm("notes"),
			HoursSpent:    c.PostForm("hours_spent"),
			MaterialsUsed: c.PostForm("materials_used"),
			ActualCost:    c.PostForm("actual_cost"),
		}
	} else {
		var req completeJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		in = workflow.ReportInput{
			Notes:         req.Notes,
			HoursSpent:    string(req.HoursSpent),
			MaterialsUsed: req.MaterialsUsed,
			ActualCost:    string(req.ActualCost),
		}
	}

	photo, closePhoto, err := formPhoto(c, "after_photo")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer closePhoto()

	report, err := h.services.Maintenance.CompleteJob(c.Request.Context(), actor(c), c.Param("id"), in, photo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetCompletionReport handles GET /api/maintenance/:id/report.
func (h *Handler) GetCompletionReport(c *gin.Context) {
	report, err := h.services.Maintenance.GetReport(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// formPhoto returns the uploaded file in field, or nil when the request
// carries none. The returned func closes the file.
func formPhoto(c *gin.Context, field string) (*storage.File, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, nil
	}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	if header.Size > maxPhotoBytes {
		return nil, noop, errors.New(field + " is larger than 10MB")
	}
	f, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	return &storage.File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        io.LimitReader(f, maxPhotoBytes),
	}, func() { f.Close() }, nil
}
