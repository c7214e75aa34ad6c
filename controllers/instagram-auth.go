package controllers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

func SetupInstagramRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/auth/instagram/start", func(e *core.RequestEvent) error {
		return BeginInstagramAuth(e, h)
	})
	se.Router.GET("/api/v1/auth/instagram/callback", func(e *core.RequestEvent) error {
		return InstagramOAuthCallback(e, h)
	})
	se.Router.GET("/api/v1/add-instagram-pages", func(e *core.RequestEvent) error {
		return AddInstagramPages(e, h)
	})
}

func useInstagramProvider(h *Handlers) bool {
	fb := h.Config.Platform(string(models.PlatformInstagram))
	if fb.ClientID == "" || fb.ClientSecret == "" {
		return false
	}
	goth.UseProviders(facebook.New(
		fb.ClientID,
		fb.ClientSecret,
		h.Config.APIHost+"/api/v1/auth/instagram/callback",
		"instagram_basic",
		"instagram_content_publish",
		"instagram_manage_comments",
		"pages_show_list",
		"pages_read_engagement",
	))
	return true
}

func BeginInstagramAuth(e *core.RequestEvent, h *Handlers) error {
	if !useInstagramProvider(h) {
		return helpers.Error(e, http.StatusInternalServerError, "Facebook App ID or Secret is not set")
	}
	q := e.Request.URL.Query()
	q.Add("provider", "facebook")
	e.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(e.Response, e.Request)
	return nil
}

func InstagramOAuthCallback(e *core.RequestEvent, h *Handlers) error {
	// The provider is registered again so the callback URL matches the instagram flow.
	useInstagramProvider(h)
	q := e.Request.URL.Query()
	q.Add("provider", "facebook")
	e.Request.URL.RawQuery = q.Encode()

	user, err := gothic.CompleteUserAuth(e.Response, e.Request)
	if err != nil {
		return helpers.Error(e, http.StatusUnauthorized, "Authentication failed: "+err.Error())
	}
	redirect := url.Values{"accessToken": {user.AccessToken}, "fbUserId": {user.UserID}}
	return e.Redirect(http.StatusTemporaryRedirect, h.Config.RedirectURL+"/connect/instagram?"+redirect.Encode())
}

// InstagramBusinessAccount represents the Instagram business account details.
type InstagramBusinessAccount struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// DataItem is a Facebook page with its linked Instagram account.
type DataItem struct {
	InstagramBusinessAccount *InstagramBusinessAccount `json:"instagram_business_account,omitempty"`
	ID                       string                    `json:"id"`
	Name                     string                    `json:"name"`
	AccessToken              string                    `json:"access_token"`
}

type InstaResponse struct {
	Data   []DataItem `json:"data"`
	Paging Paging     `json:"paging"`
}

// AddInstagramPages stores the Instagram business accounts linked to the user's pages.
func AddInstagramPages(e *core.RequestEvent, h *Handlers) error {
	query := e.Request.URL.Query()
	fbUserID := query.Get("fbUserId")
	accessToken := query.Get("accessToken")
	authUserID := query.Get("userId")
	if fbUserID == "" || accessToken == "" || authUserID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}

	ctx := e.Request.Context()
	ig := h.Config.Platform(string(models.PlatformInstagram))
	response, err := helpers.MakeHTTPRequest[InstaResponse](ctx, h.Client, http.MethodGet, ig.BaseURL+"/"+fbUserID+"/accounts", nil,
		url.Values{
			"fields":       {"name,access_token,instagram_business_account{id,name,username,profile_picture_url}"},
			"access_token": {accessToken},
		}, nil)
	if err != nil {
		h.Logger.Error("Failed to fetch Instagram accounts", "error", err)
		return helpers.Fail(e, err)
	}

	saved := []string{}
	for _, data := range response.Data {
		if data.InstagramBusinessAccount == nil {
			h.Logger.Info("Skipping Facebook page without Instagram account", "pageId", data.ID, "pageName", data.Name)
			continue
		}
		jsonData, _ := json.Marshal(data)
		ba := data.InstagramBusinessAccount
		account := &models.SocialMediaAccount{
			UserID:            authUserID,
			Platform:          models.PlatformInstagram,
			AccountName:       ba.Name,
			AccessToken:       data.AccessToken,
			PageID:            data.ID,
			BusinessAccountID: ba.ID,
			PlatformAccountID: ba.ID,
			MetaData:          string(jsonData),
			ProfileImage:      ba.ProfilePictureURL,
		}
		if account.AccountName == "" {
			account.AccountName = ba.Username
		}
		if err := AddNewConnection(ctx, h, account); err != nil {
			h.Logger.Error("Failed to add Instagram business account", "error", err)
			continue
		}
		saved = append(saved, account.ID)
	}

	if len(saved) == 0 {
		return helpers.Error(e, http.StatusNotFound, "No Instagram business accounts found for the user")
	}
	return helpers.Success(e, "Instagram Pages Connected", map[string]interface{}{"accounts": saved})
}
