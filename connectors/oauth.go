package connectors

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"content-clock-publisher/errs"
	"content-clock-publisher/models"
)

// refreshOAuth2 runs the refresh-token grant against the platform token endpoint and stores the
// new credential.
func refreshOAuth2(ctx context.Context, b *base, style oauth2.AuthStyle) (string, error) {
	platform := string(b.platform)
	if b.account.RefreshToken == "" {
		return "", errs.New(platform, errs.CodeInvalidCredential, errs.WithMessage("account has no refresh token"))
	}
	cfg := &oauth2.Config{
		ClientID:     b.opts.Settings.ClientID,
		ClientSecret: b.opts.Settings.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  b.opts.Settings.TokenURL,
			AuthStyle: style,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.opts.Client.HTTP)
	ctx, cancel := context.WithTimeout(ctx, b.opts.Client.Timeout)
	defer cancel()

	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: b.account.RefreshToken}).Token()
	if err != nil {
		return "", refreshError(platform, err)
	}

	fields := map[string]any{models.FieldAccessToken: tok.AccessToken}
	if tok.RefreshToken != "" && tok.RefreshToken != b.account.RefreshToken {
		fields[models.FieldRefreshToken] = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		fields[models.FieldExpiresAt] = &expiry
	}
	if err := b.saveTokens(ctx, fields); err != nil {
		return "", err
	}
	b.logger().Info("refreshed access token")
	return tok.AccessToken, nil
}

func refreshError(platform string, err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		code := errs.CodePlatformAPI
		if rerr.ErrorCode == "invalid_grant" || rerr.ErrorCode == "invalid_client" ||
			status == http.StatusBadRequest || status == http.StatusUnauthorized {
			code = errs.CodeInvalidCredential
		}
		msg := rerr.ErrorDescription
		if msg == "" {
			msg = "token refresh failed"
		}
		return errs.New(platform, code, errs.WithMessage(msg), errs.WithHTTP(status), errs.WithCause(err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Timeout(platform, err)
	}
	return errs.New(platform, errs.CodeNetwork, errs.WithMessage(err.Error()), errs.WithCause(err))
}
