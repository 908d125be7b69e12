package identity

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/maykaila/memora/internal/errors"
)

// Provider error codes as returned in {"error":{"message":"CODE : detail"}}.
const (
	CodeEmailNotFound           = "EMAIL_NOT_FOUND"
	CodeInvalidPassword         = "INVALID_PASSWORD"
	CodeInvalidLoginCredentials = "INVALID_LOGIN_CREDENTIALS"
	CodeInvalidEmail            = "INVALID_EMAIL"
	CodeUserDisabled            = "USER_DISABLED"
	CodeEmailExists             = "EMAIL_EXISTS"
	CodeWeakPassword            = "WEAK_PASSWORD"
	CodeTooManyAttempts         = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeInvalidRefreshToken     = "INVALID_REFRESH_TOKEN"
	CodeInvalidIDToken          = "INVALID_ID_TOKEN"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeMissingPassword         = "MISSING_PASSWORD"
)

var friendlyMessages = map[string]string{
	CodeEmailNotFound:           "Invalid email or password.",
	CodeInvalidPassword:         "Invalid email or password.",
	CodeInvalidLoginCredentials: "Invalid email or password.",
	CodeMissingPassword:         "Please enter your password.",
	CodeInvalidEmail:            "Please enter a valid email address.",
	CodeUserDisabled:            "This account has been disabled.",
	CodeEmailExists:             "An account with this email already exists.",
	CodeWeakPassword:            "Password should be at least 6 characters.",
	CodeTooManyAttempts:         "Too many attempts. Please try again later.",
	CodeTokenExpired:            "Your session has expired. Please sign in again.",
	CodeInvalidRefreshToken:     "Your session has expired. Please sign in again.",
	CodeInvalidIDToken:          "Your session has expired. Please sign in again.",
	CodeUserNotFound:            "Your session has expired. Please sign in again.",
}

// Error is a failure reported by the identity provider.
type Error struct {
	StatusCode int
	// Code is the provider code with any " : detail" suffix removed.
	Code   string
	Detail string
}

func newError(status int, raw string) *Error {
	code, detail, _ := strings.Cut(raw, " : ")
	return &Error{StatusCode: status, Code: strings.TrimSpace(code), Detail: strings.TrimSpace(detail)}
}

// Error returns the user-facing message for the code.
func (e *Error) Error() string {
	if msg, ok := friendlyMessages[e.Code]; ok {
		return msg
	}
	if e.Code != "" {
		return fmt.Sprintf("authentication failed (%s)", e.Code)
	}
	return fmt.Sprintf("authentication failed with status %d", e.StatusCode)
}

// IsInvalidCredentials reports whether the sign-in was rejected for bad email or password.
func (e *Error) IsInvalidCredentials() bool {
	switch e.Code {
	case CodeEmailNotFound, CodeInvalidPassword, CodeInvalidLoginCredentials, CodeMissingPassword, CodeInvalidEmail:
		return true
	}
	return false
}

// IsSessionExpired reports whether the refresh token can no longer be used.
func (e *Error) IsSessionExpired() bool {
	switch e.Code {
	case CodeTokenExpired, CodeInvalidRefreshToken, CodeInvalidIDToken, CodeUserNotFound, CodeUserDisabled:
		return true
	}
	return false
}

// Coded converts provider errors into coded errors for display. Other errors pass through.
func Coded(err error) error {
	var idErr *Error
	if !stderrors.As(err, &idErr) {
		return err
	}
	switch {
	case idErr.IsInvalidCredentials():
		return errors.Wrap(errors.ErrCodeAuthInvalidCredentials, idErr.Error(), idErr).
			WithSuggestion("Run 'memora auth reset-password --email <email>' if you forgot your password")
	case idErr.IsSessionExpired():
		return errors.NewSessionExpiredError(idErr)
	case idErr.Code == CodeEmailExists:
		return errors.Wrap(errors.ErrCodeAuthAccountExists, idErr.Error(), idErr).
			WithSuggestion("Run 'memora auth login' instead")
	case idErr.Code == CodeWeakPassword:
		return errors.Wrap(errors.ErrCodeAuthWeakPassword, idErr.Error(), idErr)
	default:
		return errors.Wrap(errors.ErrCodeAuthProvider, idErr.Error(), idErr)
	}
}
