package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMediaURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://cdn.example.com", "https://other.example.com/a.png", "https://other.example.com/a.png"},
		{"https://cdn.example.com/", "/uploads/a.png", "https://cdn.example.com/uploads/a.png"},
		{"https://cdn.example.com", "uploads/a.png", "https://cdn.example.com/uploads/a.png"},
		{"", "uploads/a.png", "uploads/a.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveMediaURL(tt.base, tt.ref))
	}
}

func TestIsVideoURL(t *testing.T) {
	assert.True(t, IsVideoURL("https://cdn.example.com/clip.mp4?sig=1"))
	assert.False(t, IsVideoURL("https://cdn.example.com/photo.jpg"))
}

func TestDownloadMedia(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	c := NewClient("mastodon", time.Second, nil, nil)
	media, err := DownloadMedia(context.Background(), c, srv.URL+"/photo.png?x=1")

	require.NoError(t, err)
	assert.Equal(t, png, media.Data)
	assert.Equal(t, "image/png", media.ContentType)
	assert.Regexp(t, `^[0-9a-f]{12}\.png$`, media.Filename)
	assert.False(t, media.IsVideo())
}

func TestDownloadMediaMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient("mastodon", time.Second, nil, nil)
	_, err := DownloadMedia(context.Background(), c, srv.URL+"/gone.png")
	assert.Error(t, err)
}
