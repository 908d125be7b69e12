// Package health checks what the client depends on: the backend API, the
// identity provider session and the profile picture bucket.
//
//	m := health.NewManager()
//	m.AddChecker(health.NewBackendChecker(client))
//	m.AddChecker(health.NewIdentityChecker(apiKey, auth))
//	results := m.Check(ctx)
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "backend-api".
	Name() string

	// Check must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	StatusHealthy Status = "healthy"
	// StatusDegraded means the client works with reduced functionality.
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Name       string         `json:"name" yaml:"name"`
	Status     Status         `json:"status" yaml:"status"`
	Message    string         `json:"message" yaml:"message"`
	Suggestion string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency    time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail and returns r for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithSuggestion names the command or setting that fixes the problem.
func (r *Result) WithSuggestion(s string) *Result {
	r.Suggestion = s
	return r
}

// WithLatency sets the latency and returns r for chaining.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
