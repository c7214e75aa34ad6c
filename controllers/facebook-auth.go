package controllers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type Response struct {
	Data   []Data `json:"data"`
	Paging Paging `json:"paging"`
}

type Data struct {
	AccessToken  string     `json:"access_token"`
	Category     string     `json:"category"`
	CategoryList []Category `json:"category_list"`
	Name         string     `json:"name"`
	ID           string     `json:"id"`
	Tasks        []string   `json:"tasks"`
	Picture      Picture    `json:"picture"`
}

type Picture struct {
	Data PictureData `json:"data"`
}

type PictureData struct {
	Height       int    `json:"height"`
	IsSilhouette bool   `json:"is_silhouette"`
	URL          string `json:"url"`
	Width        int    `json:"width"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Paging struct {
	Cursors Cursors `json:"cursors"`
}

type Cursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

func SetupFacebookRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/auth/facebook/start", func(e *core.RequestEvent) error {
		return BeginFacebookAuth(e, h)
	})
	se.Router.GET("/api/v1/auth/facebook/callback", func(e *core.RequestEvent) error {
		return FacebookOAuthCallback(e, h)
	})
	se.Router.GET("/api/v1/add-facebook-pages", func(e *core.RequestEvent) error {
		return AddFacebookPages(e, h)
	})
}

func BeginFacebookAuth(e *core.RequestEvent, h *Handlers) error {
	fb := h.Config.Platform(string(models.PlatformFacebook))
	if fb.ClientID == "" || fb.ClientSecret == "" {
		return helpers.Error(e, http.StatusInternalServerError, "Facebook App ID or Secret is not set")
	}
	goth.UseProviders(facebook.New(fb.ClientID, fb.ClientSecret, h.Config.APIHost+"/api/v1/auth/facebook/callback",
		"pages_manage_posts", "pages_show_list", "pages_read_engagement", "pages_manage_engagement", "publish_video"))
	q := e.Request.URL.Query()
	q.Add("provider", "facebook")
	e.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(e.Response, e.Request)
	return nil
}

func FacebookOAuthCallback(e *core.RequestEvent, h *Handlers) error {
	q := e.Request.URL.Query()
	q.Set("provider", "facebook")
	e.Request.URL.RawQuery = q.Encode()

	user, err := gothic.CompleteUserAuth(e.Response, e.Request)
	if err != nil {
		return helpers.Error(e, http.StatusUnauthorized, "Authentication failed: "+err.Error())
	}
	redirect := url.Values{"accessToken": {user.AccessToken}, "fbUserId": {user.UserID}}
	return e.Redirect(http.StatusTemporaryRedirect, h.Config.RedirectURL+"/connect/facebook?"+redirect.Encode())
}

// AddFacebookPages stores every page the Facebook user manages as a publishing account.
func AddFacebookPages(e *core.RequestEvent, h *Handlers) error {
	query := e.Request.URL.Query()
	fbUserID := query.Get("fbUserId")
	accessToken := query.Get("accessToken")
	authUserID := query.Get("userId")
	if fbUserID == "" || accessToken == "" || authUserID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}

	ctx := e.Request.Context()
	fb := h.Config.Platform(string(models.PlatformFacebook))
	response, err := helpers.MakeHTTPRequest[Response](ctx, h.Client, http.MethodGet, fb.BaseURL+"/"+fbUserID+"/accounts", nil,
		url.Values{"fields": {"picture,name,access_token"}, "access_token": {accessToken}}, nil)
	if err != nil {
		h.Logger.Error("Failed to fetch Facebook pages", "error", err)
		return helpers.Fail(e, err)
	}
	if len(response.Data) == 0 {
		return helpers.Error(e, http.StatusNotFound, "No pages found for the user")
	}

	// Page tokens derived from a long-lived user token do not expire; the user token itself
	// lasts about 60 days.
	expiry := time.Now().Add(60 * 24 * time.Hour)
	saved := make([]string, 0, len(response.Data))
	for _, data := range response.Data {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return helpers.Error(e, http.StatusInternalServerError, err.Error())
		}
		account := &models.SocialMediaAccount{
			UserID:            authUserID,
			Platform:          models.PlatformFacebook,
			AccountName:       data.Name,
			AccessToken:       accessToken,
			ExpiresAt:         &expiry,
			PageID:            data.ID,
			PageAccessToken:   data.AccessToken,
			PlatformAccountID: data.ID,
			MetaData:          string(jsonData),
			ProfileImage:      data.Picture.Data.URL,
		}
		if err := AddNewConnection(ctx, h, account); err != nil {
			return helpers.Fail(e, err)
		}
		saved = append(saved, account.ID)
	}

	return helpers.Success(e, "Pages connected", map[string]interface{}{"accounts": saved})
}
