package controllers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/engine"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type ValidateRequest struct {
	Content  string          `json:"content"`
	Platform models.Platform `json:"platform"`
	Media    []string        `json:"media"`
}

func SetupJobRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.POST("/api/v1/jobs", func(e *core.RequestEvent) error {
		return EnqueueJob(e, h)
	})
	se.Router.GET("/api/v1/jobs/{id}", func(e *core.RequestEvent) error {
		return GetJob(e, h)
	})
	se.Router.GET("/api/v1/jobs/{id}/logs", func(e *core.RequestEvent) error {
		return GetJobLogs(e, h)
	})
	se.Router.POST("/api/v1/jobs/{id}/cancel", func(e *core.RequestEvent) error {
		return CancelJob(e, h)
	})
	se.Router.POST("/api/v1/jobs/{id}/retry", func(e *core.RequestEvent) error {
		return RetryJob(e, h)
	})
	se.Router.POST("/api/v1/validate", func(e *core.RequestEvent) error {
		return ValidateContent(e, h)
	})
}

// @Summary Schedule a post
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body engine.EnqueueRequest true "job"
// @Success 200 {object} helpers.SuccessResponse
// @Failure 422 {object} helpers.ErrorResponse
// @Router /api/v1/jobs [post]
func EnqueueJob(e *core.RequestEvent, h *Handlers) error {
	var req engine.EnqueueRequest
	if err := e.BindBody(&req); err != nil {
		return helpers.Error(e, http.StatusBadRequest, "Invalid request body")
	}
	id, err := h.Engine.Enqueue(e.Request.Context(), req)
	if err != nil {
		return helpers.Fail(e, err)
	}
	return helpers.Success(e, "Job scheduled", map[string]string{"id": id})
}

// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} helpers.SuccessResponse
// @Failure 404 {object} helpers.ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func GetJob(e *core.RequestEvent, h *Handlers) error {
	job, err := h.Engine.GetJob(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return helpers.Fail(e, err)
	}
	return helpers.Success(e, "Job found", job)
}

func GetJobLogs(e *core.RequestEvent, h *Handlers) error {
	logs, err := h.Engine.Logs(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return helpers.Fail(e, err)
	}
	return helpers.Success(e, "Job logs", logs)
}

// @Summary Cancel a pending job
// @Tags jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} helpers.SuccessResponse
// @Failure 409 {object} helpers.ErrorResponse
// @Router /api/v1/jobs/{id}/cancel [post]
func CancelJob(e *core.RequestEvent, h *Handlers) error {
	job, err := h.Engine.Cancel(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return helpers.Fail(e, err)
	}
	return helpers.Success(e, "Job cancelled", job)
}

// @Summary Requeue a failed job
// @Tags jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} helpers.SuccessResponse
// @Failure 409 {object} helpers.ErrorResponse
// @Router /api/v1/jobs/{id}/retry [post]
func RetryJob(e *core.RequestEvent, h *Handlers) error {
	job, err := h.Engine.Retry(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return helpers.Fail(e, err)
	}
	return helpers.Success(e, "Job requeued", job)
}

// @Summary Validate content for a platform
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body ValidateRequest true "content"
// @Success 200 {object} helpers.SuccessResponse
// @Router /api/v1/validate [post]
func ValidateContent(e *core.RequestEvent, h *Handlers) error {
	var req ValidateRequest
	if err := e.BindBody(&req); err != nil {
		return helpers.Error(e, http.StatusBadRequest, "Invalid request body")
	}
	return helpers.Success(e, "Validation result", h.Engine.Validate(req.Content, req.Platform, req.Media))
}
