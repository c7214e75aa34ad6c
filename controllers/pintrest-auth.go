package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/oauth2"

	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type PinMedia struct {
	ImageCoverURL    string   `json:"image_cover_url"`
	PinThumbnailURLs []string `json:"pin_thumbnail_urls"`
}

type PinOwner struct {
	Username string `json:"username"`
}

type PinItem struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"created_at"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PinCount    int      `json:"pin_count"`
	Media       PinMedia `json:"media"`
	Owner       PinOwner `json:"owner"`
	Privacy     string   `json:"privacy"`
}

type PinResponse struct {
	Items    []PinItem `json:"items"`
	Bookmark string    `json:"bookmark"`
}

func SetupPinterestRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/auth/pinterest/start", func(e *core.RequestEvent) error {
		return BeginPinterestAuth(e, h)
	})
	se.Router.GET("/api/v1/auth/pinterest/callback", func(e *core.RequestEvent) error {
		return PinterestOAuthCallback(e, h)
	})
}

func pinterestOauthConfig(h *Handlers) *oauth2.Config {
	pin := h.Config.Platform(string(models.PlatformPinterest))
	return &oauth2.Config{
		ClientID:     pin.ClientID,
		ClientSecret: pin.ClientSecret,
		RedirectURL:  h.Config.APIHost + "/api/v1/auth/pinterest/callback",
		Scopes:       []string{"boards:read,pins:read,user_accounts:read,boards:write,pins:write"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://www.pinterest.com/oauth/",
			TokenURL:  pin.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func BeginPinterestAuth(e *core.RequestEvent, h *Handlers) error {
	cfg := pinterestOauthConfig(h)
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return helpers.Error(e, http.StatusInternalServerError, "Pinterest App ID or Secret is not set")
	}
	userID := e.Request.URL.Query().Get("userId")
	if userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}
	return e.Redirect(http.StatusTemporaryRedirect, cfg.AuthCodeURL(userID))
}

// PinterestOAuthCallback exchanges the code and stores one publishing account per board.
func PinterestOAuthCallback(e *core.RequestEvent, h *Handlers) error {
	query := e.Request.URL.Query()
	code, userID := query.Get("code"), query.Get("state")
	if code == "" || userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}

	ctx := e.Request.Context()
	token, err := pinterestOauthConfig(h).Exchange(ctx, code)
	if err != nil {
		h.Logger.Error("Pinterest: failed to exchange token", "error", err)
		return helpers.Error(e, http.StatusBadGateway, "Failed to exchange token")
	}

	pin := h.Config.Platform(string(models.PlatformPinterest))
	boards, err := helpers.MakeHTTPRequest[PinResponse](ctx, h.Client, http.MethodGet, pin.BaseURL+"/boards", helpers.Bearer(token.AccessToken), nil, nil)
	if err != nil {
		h.Logger.Error("Pinterest: failed to get user boards", "error", err)
		return helpers.Fail(e, err)
	}

	saved := make([]string, 0, len(boards.Items))
	for _, board := range boards.Items {
		meta, _ := json.Marshal(board)
		account := &models.SocialMediaAccount{
			UserID:            userID,
			Platform:          models.PlatformPinterest,
			AccountName:       board.Name,
			AccessToken:       token.AccessToken,
			RefreshToken:      token.RefreshToken,
			PlatformAccountID: board.ID,
			MetaData:          string(meta),
			ProfileImage:      board.Media.ImageCoverURL,
		}
		if !token.Expiry.IsZero() {
			expiry := token.Expiry
			account.ExpiresAt = &expiry
		}
		if err := AddNewConnection(ctx, h, account); err != nil {
			return helpers.Fail(e, err)
		}
		saved = append(saved, account.ID)
	}
	return helpers.Success(e, "Boards connected", map[string]interface{}{"accounts": saved})
}
