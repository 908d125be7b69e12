package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigPath(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := h.run("config", "path", "--config", path)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("config path = %q, want %q", out, path)
	}
}

func TestConfigSetAndGet(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := h.run("config", "set", "api.base_url", "https://api.memora.example", "--config", path)
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	if !strings.Contains(out, "Set api.base_url = https://api.memora.example") {
		t.Errorf("unexpected output: %q", out)
	}

	if _, err := h.run("config", "set", "session.role_retry_max", "7", "--config", path); err != nil {
		t.Fatalf("config set: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "base_url: https://api.memora.example") {
		t.Errorf("first key lost after second set:\n%s", data)
	}

	out, err = h.run("config", "get", "session.role_retry_max", "--config", path)
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Errorf("role_retry_max = %q, want 7", out)
	}
}

func TestConfigSet_InvalidValueIsReverted(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := h.run("config", "set", "poll.interval", "10s", "--config", path); err != nil {
		t.Fatalf("config set: %v", err)
	}
	before, _ := os.ReadFile(path)

	if _, err := h.run("config", "set", "api.base_url", "not a url", "--config", path); err == nil {
		t.Fatal("expected an error for a relative base URL")
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Errorf("config changed after a rejected set:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestConfigUnknownKey(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := h.run("config", "get", "providers.default", "--config", path); err == nil {
		t.Error("config get accepted an unknown key")
	}
	if _, err := h.run("config", "set", "providers.default", "ollama", "--config", path); err == nil {
		t.Error("config set accepted an unknown key")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("config file written for an unknown key")
	}
}

func TestConfigView(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := h.run("config", "set", "poll.interval", "10s", "--config", path); err != nil {
		t.Fatalf("config set: %v", err)
	}

	out, err := h.run("config", "view", "--config", path)
	if err != nil {
		t.Fatalf("config view: %v", err)
	}
	if !strings.HasPrefix(out, "Configuration file: "+path) {
		t.Errorf("view should name the file, got %q", out)
	}

	out, err = h.run("config", "view", "--config", path, "--format", "json")
	if err != nil {
		t.Fatalf("config view --format json: %v", err)
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(out), &values); err != nil {
		t.Fatalf("view output is not JSON: %v\n%s", err, out)
	}
	if values["poll.interval"] != "10s" {
		t.Errorf("poll.interval = %v, want 10s", values["poll.interval"])
	}
	if values["session.role_retry_max"] != float64(4) {
		t.Errorf("session.role_retry_max = %v, want default 4", values["session.role_retry_max"])
	}
}
