package controllers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"content-clock-publisher/models"
)

// connectionID is stable per platform identity so reconnecting an account updates its row.
func connectionID(platform models.Platform, platformAccountID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("content-clock:%s:%s", platform, platformAccountID))).String()
}

// AddNewConnection stores account, replacing the credentials of an earlier connection of the
// same platform identity.
func AddNewConnection(ctx context.Context, h *Handlers, account *models.SocialMediaAccount) error {
	if account.PlatformAccountID == "" {
		return fmt.Errorf("connection has no platform account id")
	}
	account.ID = connectionID(account.Platform, account.PlatformAccountID)
	account.IsActive = true

	if err := h.Store.SaveAccount(ctx, account); err != nil {
		h.Logger.Error("Error saving connection", "platform", account.Platform, "error", err)
		return err
	}
	h.Registry.Forget(account.ID)
	h.Logger.Info("Connection saved", "id", account.ID, "platform", account.Platform, "name", account.AccountName)
	return nil
}
