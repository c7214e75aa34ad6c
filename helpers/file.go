package helpers

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

// Media is a downloaded attachment held in memory for upload.
type Media struct {
	URL         string
	Filename    string
	ContentType string
	Data        []byte
}

// IsVideo reports whether the attachment is a video.
func (m *Media) IsVideo() bool {
	return strings.HasPrefix(m.ContentType, "video/")
}

// ResolveMediaURL turns a media reference into a fetchable URL. Absolute http(s) references are
// returned unchanged, everything else is joined onto base.
func ResolveMediaURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ref
	}
	if base == "" {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

// IsVideoURL guesses from the file extension whether mediaURL points at a video.
func IsVideoURL(mediaURL string) bool {
	return strings.HasPrefix(mime.TypeByExtension(strings.ToLower(getFileExtension(mediaURL))), "video/")
}

// DownloadMedia fetches mediaURL through c.
func DownloadMedia(ctx context.Context, c *Client, mediaURL string) (*Media, error) {
	filenameExt := getFileExtension(mediaURL)
	randomId, err := generateRandomID(16)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	header, data, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	contentType := header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filenameExt)); byExt != "" {
			contentType = byExt
		} else {
			contentType = http.DetectContentType(data)
		}
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	return &Media{
		URL:         mediaURL,
		Filename:    randomId + filenameExt,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func generateRandomID(length int) (string, error) {
	randomBytes := make([]byte, length)
	_, err := io.ReadFull(rand.Reader, randomBytes)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", randomBytes[10:]), nil
}

func getFileExtension(url string) string {
	params := strings.Split(url, "?")
	// Split the URL by the last "/"
	parts := strings.Split(params[0], "/")
	// Get the last part which contains the filename
	filename := parts[len(parts)-1]
	return filepath.Ext(filename)
}
