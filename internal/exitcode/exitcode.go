package exitcode

import (
	"os"
	"strings"

	memerrors "github.com/maykaila/memora/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// RoleError indicates the signed-in account has the wrong role or none could be resolved
	RoleError = 3

	// NotFound indicates the requested deck, folder, class or user does not exist
	NotFound = 4

	// AuthError indicates an authentication failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the user cancelled the operation (Ctrl+C)
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Coded errors are mapped by family; anything else falls back to message inspection.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code, ok := memerrors.CodeOf(err); ok {
		switch code {
		case memerrors.ErrCodeAPINotFound:
			return NotFound
		case memerrors.ErrCodeAPIForbidden:
			return RoleError
		}
		switch code.Family() {
		case "AUTH":
			return AuthError
		case "ROLE":
			return RoleError
		}
	}

	errMsg := strings.ToLower(err.Error())

	// Authentication errors
	if strings.Contains(errMsg, "not signed in") || strings.Contains(errMsg, "unauthorized") {
		return AuthError
	}
	if strings.Contains(errMsg, "invalid credentials") || strings.Contains(errMsg, "token") {
		return AuthError
	}

	// Not found
	if strings.Contains(errMsg, "not found") || strings.Contains(errMsg, "status 404") {
		return NotFound
	}

	// Network errors
	if strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection") {
		return NetworkError
	}
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "unreachable") {
		return NetworkError
	}

	// Usage errors
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case RoleError:
		return "Role error"
	case NotFound:
		return "Not found"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
