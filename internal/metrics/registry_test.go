package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsSingleton(t *testing.T) {
	m := GetDefault()
	if m == nil {
		t.Fatal("expected metrics, got nil")
	}
	if Default != m {
		t.Error("expected GetDefault to return Default instance")
	}
	if InitDefault() != m {
		t.Error("expected same instance on second call")
	}
}

func TestNewRegistryIsolated(t *testing.T) {
	reg1, m1 := NewRegistry()
	_, m2 := NewRegistry()

	m1.RoleLookup("resolved")

	families, err := reg1.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "memora_role_lookups_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected memora_role_lookups_total in registry")
	}

	if m1 == m2 {
		t.Error("expected distinct metrics per registry")
	}
}

func TestWriteFile(t *testing.T) {
	reg, m := NewRegistry()
	m.ListMutation("delete", "committed")

	path := filepath.Join(t.TempDir(), "memora.prom")
	if err := WriteFile(path, reg); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `memora_list_mutations_total{op="delete",result="committed"} 1`) {
		t.Errorf("unexpected exposition:\n%s", data)
	}
}

func TestWriteFileBadPath(t *testing.T) {
	reg, _ := NewRegistry()
	if err := WriteFile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"), reg); err == nil {
		t.Error("expected error for unwritable path")
	}
}
