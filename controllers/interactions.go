package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/helpers"
)

type ReplyRequest struct {
	Content string `json:"content"`
}

func SetupInteractionRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/accounts/{id}/test", func(e *core.RequestEvent) error {
		return TestAccount(e, h)
	})
	se.Router.POST("/api/v1/accounts/{id}/interactions/fetch", func(e *core.RequestEvent) error {
		return FetchInteractions(e, h)
	})
	se.Router.POST("/api/v1/interactions/{id}/reply", func(e *core.RequestEvent) error {
		return ReplyToInteraction(e, h)
	})
}

// @Summary Test an account connection
// @Tags accounts
// @Produce json
// @Param id path string true "account id"
// @Success 200 {object} helpers.SuccessResponse
// @Router /api/v1/accounts/{id}/test [get]
func TestAccount(e *core.RequestEvent, h *Handlers) error {
	ok, info, err := h.Engine.TestConnection(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return helpers.Fail(e, err)
	}
	return helpers.Success(e, "Connection tested", map[string]interface{}{
		"connected": ok,
		"account":   info,
	})
}

func FetchInteractions(e *core.RequestEvent, h *Handlers) error {
	limit, _ := strconv.Atoi(e.Request.URL.Query().Get("limit"))
	fresh, err := h.Engine.FetchInteractions(e.Request.Context(), e.Request.PathValue("id"), limit)
	if err != nil {
		return helpers.Fail(e, err)
	}
	return helpers.Success(e, "Interactions fetched", fresh)
}

func ReplyToInteraction(e *core.RequestEvent, h *Handlers) error {
	var req ReplyRequest
	if err := e.BindBody(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return helpers.Error(e, http.StatusBadRequest, "Reply content is required")
	}
	res, err := h.Engine.ReplyToInteraction(e.Request.Context(), e.Request.PathValue("id"), req.Content)
	if err != nil {
		return helpers.Fail(e, err)
	}
	if !res.Success {
		return helpers.Error(e, http.StatusBadGateway, res.Error)
	}
	return helpers.Success(e, "Reply sent", res)
}
