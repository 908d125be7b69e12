package cmd

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with actionable recovery suggestions
type ErrorWithSuggestion struct {
	Message     string
	Suggestions []string
	err         error
}

func (e *ErrorWithSuggestion) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(s)
		}
	}

	if e.err != nil {
		b.WriteString("\n\nDetails: ")
		b.WriteString(e.err.Error())
	}

	return b.String()
}

func (e *ErrorWithSuggestion) Unwrap() error {
	return e.err
}

// NewErrorWithSuggestions creates an error with recovery suggestions
func NewErrorWithSuggestions(msg string, err error, suggestions ...string) error {
	return &ErrorWithSuggestion{
		Message:     msg,
		Suggestions: suggestions,
		err:         err,
	}
}

// ConfirmationRequiredError is returned when a destructive command runs
// without a terminal to confirm on.
func ConfirmationRequiredError(action string) error {
	return NewErrorWithSuggestions(
		fmt.Sprintf("refusing to %s without confirmation", action),
		nil,
		"Re-run with --yes to confirm non-interactively",
	)
}

// StorageNotConfiguredError explains how to enable profile picture uploads.
func StorageNotConfiguredError(err error) error {
	return NewErrorWithSuggestions(
		"profile picture storage is not configured",
		err,
		"Set the bucket: memora config set storage.bucket <name>.appspot.com",
		"Point at a service account key: memora config set storage.credentials_file <path>",
	)
}

// MissingInputError is returned when a required value was neither passed as
// a flag nor could be prompted for.
func MissingInputError(flag string) error {
	return NewErrorWithSuggestions(
		fmt.Sprintf("required flag --%s not set", flag),
		nil,
		fmt.Sprintf("Pass --%s, or run the command in a terminal to be prompted", flag),
	)
}
