package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// remoteErrorBody accepts the two error shapes the storefront meets: the
// {"error":{"code","message"}} envelope written by httputil, and the flat
// {"status","error","message"} body of the Spring order backend.
type remoteErrorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// ParseResponseError reads the body of a non-2xx response and translates it
// into an AppError. The body is consumed and closed.
func ParseResponseError(resp *http.Response, remote string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", remote, resp.StatusCode, err)
	}

	code, message := decodeErrorBody(raw)
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return mapRemoteError(resp.StatusCode, code, message, remote)
}

func decodeErrorBody(raw []byte) (code, message string) {
	var body remoteErrorBody
	if json.Unmarshal(raw, &body) != nil {
		return "", ""
	}

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &envelope) == nil && envelope.Message != "" {
		return envelope.Code, envelope.Message
	}

	var short string
	if len(body.Error) > 0 {
		_ = json.Unmarshal(body.Error, &short)
	}
	if body.Message != "" {
		return short, body.Message
	}
	return "", short
}

func mapRemoteError(status int, code, message, remote string) error {
	qualified := fmt.Sprintf("%s: %s", remote, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(remote, message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status >= 500:
		return apperrors.RemoteUnavailable(qualified, fmt.Errorf("status %d %s", status, code))
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
