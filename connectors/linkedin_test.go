package connectors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-clock-publisher/config"
	"content-clock-publisher/errs"
	"content-clock-publisher/models"
)

func linkedinAccount() *models.SocialMediaAccount {
	return &models.SocialMediaAccount{
		ID:                "acc-li",
		Platform:          models.PlatformLinkedin,
		AccessToken:       "LITOKEN",
		RefreshToken:      "R1",
		PlatformAccountID: "abc123",
	}
}

func TestLinkedinAuthorURN(t *testing.T) {
	person, err := NewLinkedin(linkedinAccount(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:person:abc123", person.(*Linkedin).AuthorURN())

	org := linkedinAccount()
	org.OrganizationID = "777"
	orgConn, err := NewLinkedin(org, Options{})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:organization:777", orgConn.(*Linkedin).AuthorURN())

	none := linkedinAccount()
	none.PlatformAccountID = ""
	_, err = NewLinkedin(none, Options{})
	assert.Equal(t, errs.CodeInvalidCredential, errs.CodeOf(err))
}

func TestLinkedinPublishWithImage(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /v2/assets": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "registerUpload", r.URL.Query().Get("action"))
			var body map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "urn:li:organization:777", body["registerUploadRequest"]["owner"])
			writeJSON(w, 200, map[string]any{"value": map[string]any{
				"asset": "urn:li:digitalmediaAsset:A1",
				"uploadMechanism": map[string]any{
					"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest": map[string]any{"uploadUrl": "http://" + r.Host + "/upload/1"},
				},
			}})
		},
		"POST /upload/1": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer LITOKEN", r.Header.Get("Authorization"))
			data, _ := io.ReadAll(r.Body)
			assert.Equal(t, pngBytes, data)
			w.WriteHeader(http.StatusCreated)
		},
		"POST /v2/ugcPosts": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
			var post linkedinPost
			require.NoError(t, json.NewDecoder(r.Body).Decode(&post))
			assert.Equal(t, "urn:li:organization:777", post.Author)
			share := post.SpecificContent.ShareContent
			assert.Equal(t, "IMAGE", share.ShareMediaCategory)
			assert.Equal(t, `Quote "this"`, share.ShareCommentary.Text)
			require.Len(t, share.Media, 1)
			assert.Equal(t, "urn:li:digitalmediaAsset:A1", share.Media[0].Media)
			w.Header().Set("X-RestLi-Id", "urn:li:share:55")
			w.WriteHeader(http.StatusCreated)
		},
	})
	account := linkedinAccount()
	account.OrganizationID = "777"
	conn, err := NewLinkedin(account, testOptions(api, config.PlatformSettings{}, nil))
	require.NoError(t, err)

	res := conn.Publish(context.Background(), `Quote "this"`, []string{"photo.png"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "urn:li:share:55", res.RemotePostID)
	assert.Equal(t, "urn:li:organization:777", res.RemoteAccountRef)
}

func TestLinkedinRefresh(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /oauth/v2/accessToken": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "R1", r.PostForm.Get("refresh_token"))
			assert.Equal(t, "li-client", r.PostForm.Get("client_id"))
			writeJSON(w, 200, map[string]any{"access_token": "LI2", "refresh_token": "R2", "expires_in": 3600, "token_type": "Bearer"})
		},
	})
	saver := &tokenRecorder{}
	settings := config.PlatformSettings{ClientID: "li-client", ClientSecret: "li-secret", TokenURL: api.URL + "/oauth/v2/accessToken"}
	conn, err := NewLinkedin(linkedinAccount(), testOptions(api, settings, saver.save))
	require.NoError(t, err)

	token, err := conn.RefreshCredentials(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "LI2", token)
	saved := saver.last()
	assert.Equal(t, "LI2", saved[models.FieldAccessToken])
	assert.Equal(t, "R2", saved[models.FieldRefreshToken])
	assert.NotNil(t, saved[models.FieldExpiresAt])
}

func TestLinkedinRefreshRejectedIsInvalidCredential(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /oauth/v2/accessToken": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 400, map[string]string{"error": "invalid_grant", "error_description": "The provided refresh token is revoked"})
		},
	})
	settings := config.PlatformSettings{ClientID: "li-client", ClientSecret: "li-secret", TokenURL: api.URL + "/oauth/v2/accessToken"}
	conn, err := NewLinkedin(linkedinAccount(), testOptions(api, settings, nil))
	require.NoError(t, err)

	_, err = conn.RefreshCredentials(context.Background())

	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidCredential, errs.CodeOf(err))
	assert.Equal(t, "The provided refresh token is revoked", err.Error())
}

func TestLinkedinAuthenticateRefreshesExpiredToken(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /oauth/v2/accessToken": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]any{"access_token": "FRESH", "expires_in": 3600, "token_type": "Bearer"})
		},
		"GET /v2/userinfo": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer FRESH", r.Header.Get("Authorization"))
			writeJSON(w, 200, map[string]string{"sub": "abc123", "name": "Lin"})
		},
	})
	account := linkedinAccount()
	expired := fixedNow.Add(-1)
	account.ExpiresAt = &expired
	settings := config.PlatformSettings{ClientID: "li-client", ClientSecret: "li-secret", TokenURL: api.URL + "/oauth/v2/accessToken"}
	conn, err := NewLinkedin(account, testOptions(api, settings, nil))
	require.NoError(t, err)

	require.NoError(t, conn.Authenticate(context.Background()))
	assert.Equal(t, 1, api.count("POST /oauth/v2/accessToken"))
}

func TestLinkedinHasNoInteractions(t *testing.T) {
	conn, err := NewLinkedin(linkedinAccount(), Options{})
	require.NoError(t, err)
	got := conn.FetchInteractions(context.Background(), 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
