package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-clock-publisher/config"
	"content-clock-publisher/models"
)

func pinterestAccount() *models.SocialMediaAccount {
	return &models.SocialMediaAccount{
		ID:                "acc-pi",
		Platform:          models.PlatformPinterest,
		AccessToken:       "PITOKEN",
		RefreshToken:      "PR1",
		PlatformAccountID: "board1",
	}
}

func TestPinterestCreatesPin(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /pins": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer PITOKEN", r.Header.Get("Authorization"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "board1", body["board_id"])
			assert.Equal(t, "Spring recipes", body["title"])
			assert.Equal(t, "Spring recipes\nwith \"quotes\"", body["description"])
			source := body["media_source"].(map[string]any)
			assert.Equal(t, "image_url", source["source_type"])
			assert.True(t, strings.HasSuffix(source["url"].(string), "/media/salad.jpg"))
			writeJSON(w, 201, map[string]string{"id": "pin1"})
		},
	})
	conn, err := NewPinterest(pinterestAccount(), testOptions(api, config.PlatformSettings{}, nil))
	require.NoError(t, err)

	res := conn.Publish(context.Background(), "Spring recipes\nwith \"quotes\"", []string{"salad.jpg"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "pin1", res.RemotePostID)
	assert.Equal(t, "board1", res.RemoteAccountRef)
}

func TestPinterestRequiresImage(t *testing.T) {
	conn, err := NewPinterest(pinterestAccount(), Options{})
	require.NoError(t, err)

	res := conn.Publish(context.Background(), "no image", nil)
	assert.False(t, res.Success)
	assert.True(t, res.Permanent)

	res = conn.Publish(context.Background(), "video", []string{"https://cdn.example.com/clip.mp4"})
	assert.False(t, res.Success)
	assert.True(t, res.Permanent)
}

func TestPinTitle(t *testing.T) {
	assert.Equal(t, "first line", pinTitle("first line\nsecond"))
	assert.Equal(t, 100, len([]rune(pinTitle(strings.Repeat("é", 150)))))
}

func TestPinterestRefreshUsesBasicAuth(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /v5/oauth/token": func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "pi-client", user)
			assert.Equal(t, "pi-secret", pass)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "PR1", r.PostForm.Get("refresh_token"))
			writeJSON(w, 200, map[string]any{"access_token": "PI2", "token_type": "bearer", "expires_in": 2592000})
		},
	})
	saver := &tokenRecorder{}
	settings := config.PlatformSettings{ClientID: "pi-client", ClientSecret: "pi-secret", TokenURL: api.URL + "/v5/oauth/token"}
	conn, err := NewPinterest(pinterestAccount(), testOptions(api, settings, saver.save))
	require.NoError(t, err)

	token, err := conn.RefreshCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PI2", token)
	_, rotated := saver.last()[models.FieldRefreshToken]
	assert.False(t, rotated)
}

func TestPinterestCannotReply(t *testing.T) {
	conn, err := NewPinterest(pinterestAccount(), Options{})
	require.NoError(t, err)
	res := conn.ReplyToInteraction(context.Background(), "x", "hi")
	assert.False(t, res.Success)
	assert.Equal(t, "pinterest does not support replies", res.Error)
}
