package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromHostnameIsStable(t *testing.T) {
	a := FromHostname("PC-07")
	b := FromHostname("PC-07")
	if a != b {
		t.Fatalf("expected identical ids for same hostname, got %s and %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-char id, got %d chars", len(a))
	}
	if FromHostname("PC-08") == a {
		t.Fatalf("expected different hostnames to produce different ids")
	}
}

func TestLoadOrCreatePersistsIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_state.json")
	store := NewStore(path)

	first, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.AgentID == "" {
		t.Fatalf("expected agent id to be derived")
	}

	second, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.AgentID != first.AgentID {
		t.Fatalf("expected identity survival across loads, got %s then %s", first.AgentID, second.AgentID)
	}
}

func TestLoadOrCreateUsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_state.json")
	if err := os.WriteFile(path, []byte(`{"agent_id":"cafe0000cafe0000cafe0000cafe0000","hostname":"other-host"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := NewStore(path).LoadOrCreate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.AgentID != "cafe0000cafe0000cafe0000cafe0000" {
		t.Fatalf("expected persisted id to win over hostname derivation, got %s", id.AgentID)
	}
}

func TestLoadOrCreateRegeneratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := NewStore(path).LoadOrCreate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.AgentID == "" {
		t.Fatalf("expected a usable identity despite corrupt state file")
	}
}
