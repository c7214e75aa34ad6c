package engine

import (
	"context"

	"content-clock-publisher/errs"
	"content-clock-publisher/models"
)

// FetchInteractions pulls the latest interactions of an account and stores the new ones, which
// it returns.
func (e *Engine) FetchInteractions(ctx context.Context, accountID string, limit int) ([]models.EngagementInteraction, error) {
	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.cfg.InteractionLimit
	}
	conn, err := e.dispatcher.Resolve(account)
	if err != nil {
		return nil, err
	}
	if err := conn.Authenticate(ctx); err != nil {
		return nil, err
	}

	fresh := []models.EngagementInteraction{}
	for _, in := range conn.FetchInteractions(ctx, limit) {
		in.ID = e.newID()
		in.AccountID = account.ID
		created, err := e.store.CreateInteraction(ctx, &in)
		if err != nil {
			return fresh, err
		}
		if created {
			fresh = append(fresh, in)
		}
	}
	e.logger.Info("interactions fetched", "account", account.ID, "platform", account.Platform, "new", len(fresh))
	return fresh, nil
}

// ReplyToInteraction answers a stored interaction and marks it processed on success.
func (e *Engine) ReplyToInteraction(ctx context.Context, interactionID, content string) (models.ReplyResult, error) {
	in, err := e.store.GetInteraction(ctx, interactionID)
	if err != nil {
		return models.ReplyResult{}, err
	}
	if in.Processed {
		return models.ReplyResult{}, errs.New(string(in.Platform), errs.CodeConflict, errs.WithMessage("interaction already answered"))
	}
	account, err := e.store.GetAccount(ctx, in.AccountID)
	if err != nil {
		return models.ReplyResult{}, err
	}
	conn, err := e.dispatcher.Resolve(account)
	if err != nil {
		return models.ReplyResult{}, err
	}
	if err := conn.Authenticate(ctx); err != nil {
		return models.ReplyResult{}, err
	}

	res := conn.ReplyToInteraction(ctx, in.RemoteID, content)
	res.InteractionID = in.ID
	if !res.Success {
		return res, nil
	}
	if err := e.store.MarkInteractionProcessed(ctx, in.ID); err != nil {
		return res, err
	}
	return res, nil
}

// SyncInteractions fetches interactions for every active account.
func (e *Engine) SyncInteractions(ctx context.Context) {
	accounts, err := e.store.ListActiveAccounts(ctx)
	if err != nil {
		e.logger.Error("list accounts failed", "error", err)
		return
	}
	for _, account := range accounts {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.FetchInteractions(ctx, account.ID, 0); err != nil {
			e.logger.Warn("interaction sync failed", "account", account.ID, "platform", account.Platform, "error", err)
		}
	}
}

// TestConnection authenticates an account and, when that works, reports its profile.
func (e *Engine) TestConnection(ctx context.Context, accountID string) (bool, *models.AccountInfo, error) {
	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return false, nil, err
	}
	if !e.dispatcher.TestConnection(ctx, account) {
		return false, nil, nil
	}
	conn, err := e.dispatcher.Resolve(account)
	if err != nil {
		return true, nil, nil
	}
	info, err := conn.FetchAccountInfo(ctx)
	if err != nil {
		e.logger.Warn("fetch account info failed", "account", account.ID, "error", err)
		return true, nil, nil
	}
	return true, info, nil
}
