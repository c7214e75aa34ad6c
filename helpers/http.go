package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"content-clock-publisher/errs"
)

// Client sends requests to one platform API. Every call gets its own timeout and passes
// through the platform's circuit breaker.
type Client struct {
	Platform string
	HTTP     *http.Client
	Timeout  time.Duration
	Breaker  circuitbreaker.CircuitBreaker[*http.Response]
	Logger   *slog.Logger
}

// NewClient builds a platform client. A nil breaker disables circuit breaking.
func NewClient(platform string, timeout time.Duration, breaker circuitbreaker.CircuitBreaker[*http.Response], logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Platform: platform,
		HTTP:     &http.Client{Transport: DefaultTransport()},
		Timeout:  timeout,
		Breaker:  breaker,
		Logger:   logger,
	}
}

// DefaultTransport caps connections per host so a dead platform cannot pile up sockets.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		MaxConnsPerHost:     50,
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewBreaker builds the circuit breaker shared by every connector of a platform. It opens after
// half of ten calls fail with a transport error or a 5xx and probes again after delay.
//
//nolint:bodyclose // [*http.Response] is a type parameter here
func NewBreaker(platform string, delay time.Duration, logger *slog.Logger) circuitbreaker.CircuitBreaker[*http.Response] {
	if delay <= 0 {
		delay = 30 * time.Second
	}
	builder := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(delay).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode >= 500
		})
	if logger != nil {
		builder = builder.OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.Warn("circuit breaker state change", "platform", platform, "from", event.OldState, "to", event.NewState)
		})
	}
	return builder.Build()
}

// Do sends req with the per-call timeout and returns the response body. Non-2xx responses and
// JSON error envelopes become *errs.E.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	_, body, err := c.Send(ctx, req)
	return body, err
}

// Send is Do that also returns the response headers.
func (c *Client) Send(ctx context.Context, req *http.Request) (http.Header, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	req = req.WithContext(ctx)

	call := func() (*http.Response, error) {
		return c.HTTP.Do(req)
	}
	var (
		resp *http.Response
		err  error
	)
	if c.Breaker != nil {
		resp, err = failsafe.With(c.Breaker).WithContext(ctx).Get(call)
	} else {
		resp, err = call()
	}
	if err != nil {
		return nil, nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, c.transportError(ctx, err)
	}

	c.Logger.Debug("HTTP Request", "platform", c.Platform, "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

	if apiErr := c.responseError(resp.StatusCode, body); apiErr != nil {
		return resp.Header, body, apiErr
	}
	return resp.Header, body, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return errs.New(c.Platform, errs.CodeCircuitOpen, errs.WithMessage(c.Platform+" is temporarily unavailable"), errs.WithCause(err))
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errs.Timeout(c.Platform, err)
	case errors.Is(err, context.Canceled):
		return errs.New(c.Platform, errs.CodeNetwork, errs.WithMessage("request cancelled"), errs.WithCause(err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Timeout(c.Platform, err)
	}
	return errs.New(c.Platform, errs.CodeNetwork, errs.WithMessage(err.Error()), errs.WithCause(err))
}

// apiError matches the error envelopes the supported platforms return: Graph style
// {"error":{"message","code"}}, Mastodon style {"error":"..."} and LinkedIn/Pinterest style
// {"message":"..."}.
type apiError struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type graphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	ErrorUserMsg string `json:"error_user_msg"`
}

// invalidTokenCodes are Graph API codes for tokens that will never work again.
var invalidTokenCodes = map[int]bool{102: true, 190: true}

func (c *Client) responseError(status int, body []byte) error {
	ok := status >= 200 && status < 300

	var env apiError
	_ = json.Unmarshal(body, &env)

	var graph graphError
	message := ""
	if len(env.Error) > 0 && string(env.Error) != "null" {
		if err := json.Unmarshal(env.Error, &graph); err == nil && graph.Message != "" {
			message = graph.Message
			if graph.ErrorUserMsg != "" {
				message = graph.Message + ": " + graph.ErrorUserMsg
			}
		} else {
			var s string
			if json.Unmarshal(env.Error, &s) == nil {
				message = s
			}
		}
	}
	if ok && message == "" {
		return nil
	}
	if message == "" {
		message = env.Message
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
		if len(message) > 300 {
			message = message[:300]
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}

	code := errs.CodePlatformAPI
	switch {
	case invalidTokenCodes[graph.Code]:
		code = errs.CodeInvalidCredential
	case status == http.StatusUnauthorized:
		code = errs.CodeAuth
	}
	if ok {
		// An error envelope on a 2xx is still a failure, but not one we can classify by status.
		status = 0
	}
	return errs.New(c.Platform, code, errs.WithMessage(message), errs.WithHTTP(status))
}

// MakeHTTPRequest is the universal JSON request helper: it encodes body as JSON or as a form
// (Content-Type application/x-www-form-urlencoded with url.Values), adds query parameters and
// decodes a 2xx JSON response into T.
func MakeHTTPRequest[T any](
	ctx context.Context,
	c *Client,
	method string,
	fullURL string,
	headers map[string]string,
	queryParams url.Values,
	body interface{},
) (T, error) {
	var result T

	var bodyReader io.Reader

	// Prepare request body based on Content-Type
	if body != nil {
		contentType := headers["Content-Type"]

		switch contentType {
		case "application/x-www-form-urlencoded":
			formValues, ok := body.(url.Values)
			if !ok {
				return result, fmt.Errorf("body must be url.Values when using application/x-www-form-urlencoded")
			}
			bodyReader = strings.NewReader(formValues.Encode())

		case "application/json", "":
			b, err := json.Marshal(body)
			if err != nil {
				return result, err
			}
			bodyReader = bytes.NewBuffer(b)

		default:
			return result, fmt.Errorf("unsupported Content-Type: %s", contentType)
		}
	}

	// Add query parameters
	u, err := url.Parse(fullURL)
	if err != nil {
		return result, err
	}
	if len(queryParams) > 0 {
		q := u.Query()
		for k, v := range queryParams {
			q[k] = v
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return result, err
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && headers["Content-Type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	respBytes, err := c.Do(ctx, req)
	if err != nil {
		return result, err
	}
	if len(bytes.TrimSpace(respBytes)) == 0 {
		return result, nil
	}

	if err := json.Unmarshal(respBytes, &result); err != nil {
		return result, errs.New(c.Platform, errs.CodePlatformAPI, errs.WithMessage("unexpected response from "+c.Platform), errs.WithCause(err))
	}

	return result, nil
}

// Bearer returns the Authorization header map for token.
func Bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
