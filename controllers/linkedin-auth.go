package controllers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"

	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

// User matches the LinkedIn OpenID userinfo response.
type User struct {
	Sub           string `json:"sub"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Locale        struct {
		Country  string `json:"country"`
		Language string `json:"language"`
	} `json:"locale"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
}

func SetupLinkedinRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/auth/linkedin/start", func(e *core.RequestEvent) error {
		return BeginLinkedinAuth(e, h)
	})
	se.Router.GET("/api/v1/auth/linkedin/callback", func(e *core.RequestEvent) error {
		return LinkedinOAuthCallback(e, h)
	})
}

func linkedinOauthConfig(h *Handlers) *oauth2.Config {
	li := h.Config.Platform(string(models.PlatformLinkedin))
	endpoint := linkedin.Endpoint
	if li.TokenURL != "" {
		endpoint.TokenURL = li.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     li.ClientID,
		ClientSecret: li.ClientSecret,
		RedirectURL:  h.Config.APIHost + "/api/v1/auth/linkedin/callback",
		Scopes:       []string{"w_member_social", "profile", "openid", "email"},
		Endpoint:     endpoint,
	}
}

// BeginLinkedinAuth redirects to LinkedIn consent. The app user id travels in the OAuth state.
func BeginLinkedinAuth(e *core.RequestEvent, h *Handlers) error {
	cfg := linkedinOauthConfig(h)
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return helpers.Error(e, http.StatusInternalServerError, "LinkedIn App ID or Secret is not set")
	}
	userID := e.Request.URL.Query().Get("userId")
	if userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}
	return e.Redirect(http.StatusTemporaryRedirect, cfg.AuthCodeURL(userID, oauth2.AccessTypeOffline))
}

// LinkedinOAuthCallback exchanges the code and stores the member as a publishing account.
func LinkedinOAuthCallback(e *core.RequestEvent, h *Handlers) error {
	query := e.Request.URL.Query()
	code, userID := query.Get("code"), query.Get("state")
	if code == "" || userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}

	ctx := e.Request.Context()
	token, err := linkedinOauthConfig(h).Exchange(ctx, code)
	if err != nil {
		h.Logger.Error("Failed to exchange LinkedIn token", "error", err)
		return helpers.Error(e, http.StatusBadGateway, "Failed to exchange token")
	}

	li := h.Config.Platform(string(models.PlatformLinkedin))
	user, err := helpers.MakeHTTPRequest[User](ctx, h.Client, http.MethodGet, li.BaseURL+"/v2/userinfo", helpers.Bearer(token.AccessToken), nil, nil)
	if err != nil {
		h.Logger.Error("Linkedin: failed to fetch userinfo", "error", err)
		return helpers.Fail(e, err)
	}

	account := &models.SocialMediaAccount{
		UserID:            userID,
		Platform:          models.PlatformLinkedin,
		AccountName:       user.Name,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		PlatformAccountID: user.Sub,
		ProfileImage:      user.Picture,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.ExpiresAt = &expiry
	}
	if err := AddNewConnection(ctx, h, account); err != nil {
		return helpers.Fail(e, err)
	}
	return e.Redirect(http.StatusTemporaryRedirect, h.Config.RedirectURL+"/connect/linkedin?account="+account.ID)
}
