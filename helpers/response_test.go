package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"content-clock-publisher/errs"
)

func TestStatusFor(t *testing.T) {
	cases := map[errs.Code]int{
		errs.CodeValidation:        http.StatusUnprocessableEntity,
		errs.CodeNotFound:          http.StatusNotFound,
		errs.CodeConflict:          http.StatusConflict,
		errs.CodeAuth:              http.StatusUnauthorized,
		errs.CodeInvalidCredential: http.StatusUnauthorized,
		errs.CodeTimeout:           http.StatusGatewayTimeout,
		errs.CodePlatformAPI:       http.StatusBadGateway,
		errs.CodeNetwork:           http.StatusBadGateway,
		errs.CodeCircuitOpen:       http.StatusBadGateway,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(errs.New("facebook", code)), string(code))
	}
}

func TestStatusForWrappedAndPlainErrors(t *testing.T) {
	wrapped := fmt.Errorf("load job: %w", errs.New("", errs.CodeNotFound))
	assert.Equal(t, http.StatusNotFound, StatusFor(wrapped))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
