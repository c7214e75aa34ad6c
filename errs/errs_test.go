package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New("facebook", CodePlatformAPI, WithMessage("  Invalid OAuth access token.  "))
	require.Error(t, err)
	assert.Equal(t, "Invalid OAuth access token.", err.Error())

	cause := errors.New("dial tcp: connection refused")
	err = New("linkedin", CodeNetwork, WithCause(cause))
	assert.Equal(t, cause.Error(), err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "not_found", New("", CodeNotFound).Error())
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *E
		want bool
	}{
		{"validation", New("x", CodeValidation), false},
		{"invalid credential", New("x", CodeInvalidCredential), false},
		{"not found", NotFound("x", "account"), false},
		{"auth", New("x", CodeAuth), true},
		{"network", New("x", CodeNetwork), true},
		{"timeout", Timeout("x", context.DeadlineExceeded), true},
		{"circuit open", New("x", CodeCircuitOpen), true},
		{"server error", New("x", CodePlatformAPI, WithHTTP(http.StatusBadGateway)), true},
		{"bad request", New("x", CodePlatformAPI, WithHTTP(http.StatusBadRequest)), false},
		{"rate limited", New("x", CodePlatformAPI, WithHTTP(http.StatusTooManyRequests)), true},
		{"no status", New("x", CodePlatformAPI), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
			assert.Equal(t, tt.want, IsRetryable(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestIsRetryablePlainErrors(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("boom")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("load: %w", NotFound("", "account"))))
	assert.Equal(t, CodeTimeout, CodeOf(context.DeadlineExceeded))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestTimeoutMessage(t *testing.T) {
	err := Timeout("mastodon", context.DeadlineExceeded)
	assert.Equal(t, "timeout", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidationJoinsViolations(t *testing.T) {
	err := Validation("instagram", []string{"a", "b"})
	assert.Equal(t, "a; b", err.Error())
	assert.False(t, err.Retryable())
}
