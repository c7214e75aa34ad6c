package helpers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/errs"
)

type SuccessResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    errs.Code   `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(e *core.RequestEvent, message string, data interface{}) error {
	var successResponse SuccessResponse
	successResponse.Status = true
	successResponse.Message = message
	successResponse.Data = data
	return e.JSON(http.StatusOK, successResponse)
}

func Error(e *core.RequestEvent, status int, message string) error {
	var errorResponse ErrorResponse
	errorResponse.Status = false
	errorResponse.Message = message
	e.App.Logger().Error(message, "path", e.Request.URL.Path, "status", status)
	return e.JSON(status, errorResponse)
}

// Fail writes err with the status its code maps to.
func Fail(e *core.RequestEvent, err error) error {
	status := StatusFor(err)
	var errorResponse ErrorResponse
	errorResponse.Status = false
	errorResponse.Message = err.Error()
	errorResponse.Code = errs.CodeOf(err)
	if status >= http.StatusInternalServerError {
		e.App.Logger().Error("request failed", "path", e.Request.URL.Path, "error", err)
	}
	return e.JSON(status, errorResponse)
}

// StatusFor maps an error envelope code onto an HTTP status.
func StatusFor(err error) int {
	var env *errs.E
	if !errors.As(err, &env) {
		return http.StatusInternalServerError
	}
	switch env.Code {
	case errs.CodeValidation:
		return http.StatusUnprocessableEntity
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeConflict:
		return http.StatusConflict
	case errs.CodeAuth, errs.CodeInvalidCredential:
		return http.StatusUnauthorized
	case errs.CodeTimeout:
		return http.StatusGatewayTimeout
	case errs.CodePlatformAPI, errs.CodeNetwork, errs.CodeCircuitOpen:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
