package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Identity is the durable agent identity. It is created once on first run
// and never changes across restarts on the same machine. Deleting the
// state file resets identity and forces re-registration as a new record.
//
// Known pitfall: the id is a pure function of the hostname, so two
// machines sharing a hostname collide, and copying the state file to
// another machine clones the identity.
type Identity struct {
	AgentID  string `json:"agent_id"`
	Hostname string `json:"hostname"`
}

// FromHostname derives the stable agent id for a hostname.
func FromHostname(hostname string) string {
	sum := sha256.Sum256([]byte(hostname))
	return hex.EncodeToString(sum[:])[:32]
}

// Store persists the agent identity to a local JSON file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// LoadOrCreate returns the persisted identity, creating and persisting it
// on first run. A corrupt state file is treated as absent and regenerated;
// identity corruption never produces an unusable identity. The returned
// error is only the persistence failure, and the identity is valid even
// when it is non-nil.
func (s *Store) LoadOrCreate() (Identity, error) {
	if raw, err := os.ReadFile(s.path); err == nil {
		var id Identity
		if jsonErr := json.Unmarshal(raw, &id); jsonErr == nil && id.AgentID != "" {
			return id, nil
		}
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown-host"
	}

	id := Identity{
		AgentID:  FromHostname(hostname),
		Hostname: hostname,
	}

	if err := s.save(id); err != nil {
		return id, fmt.Errorf("failed to persist agent identity: %w", err)
	}

	return id, nil
}

func (s *Store) save(id Identity) error {
	raw, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}
