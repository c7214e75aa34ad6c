package controllers

import (
	"log/slog"

	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/config"
	"content-clock-publisher/connectors"
	"content-clock-publisher/engine"
	"content-clock-publisher/helpers"
	"content-clock-publisher/store"
)

// Handlers carries what the HTTP routes need.
type Handlers struct {
	Engine   *engine.Engine
	Store    store.Store
	Registry *connectors.Registry
	Config   config.Settings
	Client   *helpers.Client
	Logger   *slog.Logger
}

// SetupRoutes registers every API route.
func SetupRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/ping", Ping)
	SetupJobRoutes(se, h)
	SetupInteractionRoutes(se, h)
	SetupFacebookRoutes(se, h)
	SetupInstagramRoutes(se, h)
	SetupTwitterRoutes(se, h)
	SetupLinkedinRoutes(se, h)
	SetupMastodonRoutes(se, h)
	SetupPinterestRoutes(se, h)
	SetupThreadsRoutes(se, h)
}
