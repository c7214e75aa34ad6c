package helpers

import (
	"github.com/pocketbase/pocketbase"

	"content-clock-publisher/config"
)

// CreateApp builds the PocketBase host. Non-production environments run in dev mode, which logs
// every request and SQL statement.
func CreateApp(cfg config.Settings) *pocketbase.PocketBase {
	app := pocketbase.NewWithConfig(pocketbase.Config{
		HideStartBanner: cfg.Env == "prod",
		DefaultDev:      cfg.Env != "prod",
	})

	return app
}
