package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format represents the output format for logs
type Format int

const (
	// FormatJSON outputs logs in JSON format
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format
	FormatText
)

// String returns the string representation of the format
func (f Format) String() string {
	if f == FormatText {
		return "text"
	}
	return "json"
}

// ParseFormat parses a string into a Format
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// Output represents where logs should be written
type Output struct {
	writer io.Writer
}

// Writer returns the underlying io.Writer
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return io.Discard
	}
	return o.writer
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// OutputDiscard drops every record.
func OutputDiscard() Output {
	return Output{writer: io.Discard}
}

// OutputFile opens path for appending, creating parent directories.
// "-" selects stderr. The returned close function is never nil.
func OutputFile(path string) (Output, func() error, error) {
	if path == "-" {
		return OutputStderr(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Output{}, func() error { return nil }, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return Output{}, func() error { return nil }, fmt.Errorf("open log file: %w", err)
	}
	return Output{writer: f}, f.Close, nil
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format (JSON or Text)
	Format Format

	// Output is where logs should be written
	Output Output

	// AddSource includes source file and line number in logs
	AddSource bool

	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs at INFO in text format to stderr.
// Interactive commands replace Output with the log file so the terminal stays clean.
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "memora",
		ServiceVersion: "dev",
	}
}

// DevelopmentConfig logs at DEBUG with source locations.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = LevelDebug
	cfg.AddSource = true
	return cfg
}

// ProductionConfig logs JSON at INFO, suited to log shipping.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	return cfg
}
