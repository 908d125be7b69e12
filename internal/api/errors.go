package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/maykaila/memora/internal/errors"
)

// Error is a non-2xx backend response.
type Error struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// checkStatus turns a non-2xx response into *Error. The body is consumed.
func checkStatus(resp *http.Response, requestID string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)

	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
		RequestID:  requestID,
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			apiErr.Message = errResp.Message
		} else if errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
	}
	return apiErr
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized reports whether the backend rejected the bearer token.
// A 403 means the token was accepted but the account may not act.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsRetryable reports whether repeating the request may succeed.
func IsRetryable(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	var decodeErr *DecodeError
	if stderrors.As(err, &decodeErr) {
		return false
	}
	code := StatusCode(err)
	switch {
	case code == 0:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	}
	return false
}

// Coded maps backend errors onto coded errors for display.
func Coded(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.CodeOf(err); ok {
		return err
	}

	var decodeErr *DecodeError
	if stderrors.As(err, &decodeErr) {
		code := errors.ErrCodeParseResponse
		if decodeErr.Field != "" {
			code = errors.ErrCodeParseMissingField
		}
		return errors.Wrap(code, "unexpected response from the server", err)
	}

	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return errors.Wrap(errors.ErrCodeAPINotFound, apiErr.Message, err)
		case apiErr.StatusCode == http.StatusUnauthorized:
			return errors.NewSessionExpiredError(err)
		case apiErr.StatusCode == http.StatusForbidden:
			return errors.NewForbiddenError(apiErr.Message, err)
		default:
			return errors.Wrap(errors.ErrCodeAPIStatus, apiErr.Message, err).
				WithSuggestion(fmt.Sprintf("Request ID: %s", apiErr.RequestID))
		}
	}

	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return errors.Wrap(errors.ErrCodeAPIRequest, "could not reach the Memora server", err).
		WithSuggestion("Check your network connection and the api.base_url setting")
}
