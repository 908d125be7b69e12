package health

import (
	"testing"
	"time"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("Status.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		result *Result
		want   Status
	}{
		{Healthy("ok"), StatusHealthy},
		{Degraded("ok"), StatusDegraded},
		{Unhealthy("ok"), StatusUnhealthy},
	}
	for _, tt := range tests {
		if tt.result.Status != tt.want {
			t.Errorf("Status = %v, want %v", tt.result.Status, tt.want)
		}
		if tt.result.Details == nil {
			t.Error("Details should be initialized")
		}
	}
}

func TestFluentAPI(t *testing.T) {
	result := Degraded("not signed in").
		WithDetail("uid", "u1").
		WithDetail("status", 401).
		WithSuggestion("memora auth login").
		WithLatency(50 * time.Millisecond)

	if result.Message != "not signed in" {
		t.Errorf("Message = %q", result.Message)
	}
	if result.Suggestion != "memora auth login" {
		t.Errorf("Suggestion = %q", result.Suggestion)
	}
	if result.Latency != 50*time.Millisecond {
		t.Errorf("Latency = %v, want 50ms", result.Latency)
	}
	if val, ok := result.Details["status"].(int); !ok || val != 401 {
		t.Errorf("Details[status] = %v, want 401", result.Details["status"])
	}
}
