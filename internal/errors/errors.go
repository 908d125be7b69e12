package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeAuthInvalidCredentials ErrorCode = "AUTH-001"
	ErrCodeAuthNotSignedIn        ErrorCode = "AUTH-002"
	ErrCodeAuthSessionExpired     ErrorCode = "AUTH-003"
	ErrCodeAuthTokenRefresh       ErrorCode = "AUTH-004"
	ErrCodeAuthAccountExists      ErrorCode = "AUTH-005"
	ErrCodeAuthWeakPassword       ErrorCode = "AUTH-006"
	ErrCodeAuthProvider           ErrorCode = "AUTH-007"

	// Role errors (ROLE-001 to ROLE-099)
	ErrCodeRoleMismatch   ErrorCode = "ROLE-001"
	ErrCodeRoleUnresolved ErrorCode = "ROLE-002"
	ErrCodeRoleUnknown    ErrorCode = "ROLE-003"

	// Backend API errors (API-001 to API-099)
	ErrCodeAPIRequest   ErrorCode = "API-001"
	ErrCodeAPIStatus    ErrorCode = "API-002"
	ErrCodeAPINotFound  ErrorCode = "API-003"
	ErrCodeAPIRollback  ErrorCode = "API-004"
	ErrCodeAPIForbidden ErrorCode = "API-005"

	// Parse errors (PARSE-001 to PARSE-099)
	ErrCodeParseResponse     ErrorCode = "PARSE-001"
	ErrCodeParseMissingField ErrorCode = "PARSE-002"

	// Local I/O errors (IO-001 to IO-099)
	ErrCodeConfigLoad       ErrorCode = "IO-001"
	ErrCodeConfigSave       ErrorCode = "IO-002"
	ErrCodeCredentialsRead  ErrorCode = "IO-003"
	ErrCodeCredentialsWrite ErrorCode = "IO-004"
	ErrCodeFileNotFound     ErrorCode = "IO-005"

	// Object storage errors (STORAGE-001 to STORAGE-099)
	ErrCodeStorageUnavailable ErrorCode = "STORAGE-001"
	ErrCodeStorageUpload      ErrorCode = "STORAGE-002"
)

// MemoraError represents an enhanced error with code, suggestions, and documentation
type MemoraError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *MemoraError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *MemoraError) Unwrap() error {
	return e.Cause
}

// New creates a new MemoraError
func New(code ErrorCode, message string) *MemoraError {
	return &MemoraError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new MemoraError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *MemoraError {
	return &MemoraError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *MemoraError) WithSuggestion(suggestion string) *MemoraError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *MemoraError) WithSuggestions(suggestions ...string) *MemoraError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *MemoraError) WithDocs(url string) *MemoraError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first MemoraError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var memErr *MemoraError
	if stderrors.As(err, &memErr) {
		return memErr.Code, true
	}
	return "", false
}

// HasCode reports whether err's chain contains a MemoraError with code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if memErr, ok := err.(*MemoraError); ok && memErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Family returns the category prefix of a code, e.g. "AUTH" for "AUTH-001".
func (c ErrorCode) Family() string {
	if i := strings.IndexByte(string(c), '-'); i > 0 {
		return string(c[:i])
	}
	return string(c)
}

// Common error constructors for frequently used errors

// NewNotSignedInError is returned when a command needs a principal and none is cached.
func NewNotSignedInError() *MemoraError {
	return New(ErrCodeAuthNotSignedIn, "you are not signed in").
		WithSuggestion("Run 'memora auth login --email <email>' to sign in").
		WithSuggestion("Run 'memora auth register' to create an account")
}

// NewSessionExpiredError is returned when the identity provider rejects the cached refresh token.
func NewSessionExpiredError(cause error) *MemoraError {
	return Wrap(ErrCodeAuthSessionExpired, "your session has expired", cause).
		WithSuggestion("Run 'memora auth login' to sign in again")
}

// NewRoleMismatchError creates a wrong-role error pointing at the user's own landing page.
func NewRoleMismatchError(required, actual, landing string) *MemoraError {
	return New(ErrCodeRoleMismatch, fmt.Sprintf("this action requires the %s role, you are signed in as a %s", required, actual)).
		WithSuggestion(fmt.Sprintf("Open your %s", landing))
}

// NewRoleUnresolvedError is returned when the role lookup could not complete.
func NewRoleUnresolvedError(cause error) *MemoraError {
	return Wrap(ErrCodeRoleUnresolved, "could not determine your account role", cause).
		WithSuggestion("Check your network connection and retry").
		WithSuggestion("Run 'memora auth status' to verify the backend is reachable")
}

// NewForbiddenError is returned when the backend refuses an action for the signed-in account.
func NewForbiddenError(message string, cause error) *MemoraError {
	if message == "" {
		message = "you do not have permission to do that"
	}
	return Wrap(ErrCodeAPIForbidden, message, cause).
		WithSuggestion("Run 'memora auth status' to check which account and role you are using")
}

// NewRollbackError creates an error for an optimistic mutation that was undone.
func NewRollbackError(what string, cause error) *MemoraError {
	return Wrap(ErrCodeAPIRollback, fmt.Sprintf("failed to delete %s, nothing was changed", what), cause).
		WithSuggestion("Try again in a moment")
}

// NewConfigLoadError creates a configuration load error
func NewConfigLoadError(path string, cause error) *MemoraError {
	return Wrap(ErrCodeConfigLoad, fmt.Sprintf("failed to load configuration: %s", path), cause).
		WithSuggestion("Check the file syntax (YAML)").
		WithSuggestion("Run 'memora config path' to locate the configuration file")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *MemoraError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}
