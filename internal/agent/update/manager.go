package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rfcampos/sitewatch/internal/agent/repository"
	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"github.com/rfcampos/sitewatch/pkg/version"
)

// Outcome of a single update check.
type Outcome int

const (
	OutcomeNoUpdate Outcome = iota
	OutcomeUpdated
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoUpdate:
		return "no_update"
	case OutcomeUpdated:
		return "updated"
	default:
		return "failed"
	}
}

// pendingState is persisted across the restart that follows a swap so the
// next process knows an unconfirmed update is in flight.
type pendingState struct {
	Version      string `json:"version"`
	BackupPath   string `json:"backup_path"`
	FailedCycles int    `json:"failed_cycles"`
}

// Manager applies agent self-updates with a stage/verify/swap protocol.
// The running package is replaced only after the staged download passes
// its checksum check, and the previous package is kept at a backup path
// until the new version confirms itself by completing a registration
// cycle. After RollbackAfter consecutive failed cycles the backup is
// restored.
type Manager struct {
	client        repository.ICollectorClient
	exePath       string
	statePath     string
	rollbackAfter int
	logger        *logger.CanonicalLogger

	// Serializes the swap; a swap in progress is never preempted.
	mu sync.Mutex
}

func NewManager(client repository.ICollectorClient, exePath, statePath string, rollbackAfter int, log *logger.CanonicalLogger) *Manager {
	if rollbackAfter <= 0 {
		rollbackAfter = 3
	}
	return &Manager{
		client:        client,
		exePath:       exePath,
		statePath:     statePath,
		rollbackAfter: rollbackAfter,
		logger:        log.Component("update"),
	}
}

// CheckAndApply queries the collector for a newer package and, when one
// exists, stages, verifies and swaps it in. It returns OutcomeUpdated when
// the process should restart into the new package. The returned error is
// diagnostic; the caller keeps running the current version on any failure.
func (m *Manager) CheckAndApply(ctx context.Context, currentVersion string) (Outcome, error) {
	info, err := m.client.LatestVersion(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	if info == nil || info.Version == "" || !version.IsNewer(info.Version, currentVersion) {
		return OutcomeNoUpdate, nil
	}

	m.logger.Info("newer agent package available",
		logger.String("current", currentVersion),
		logger.String(logger.FieldVersion, info.Version),
	)

	staging := m.exePath + ".staging"
	if err := m.client.DownloadPackage(ctx, staging); err != nil {
		return OutcomeFailed, err
	}

	if err := verifyChecksum(staging, info.Checksum); err != nil {
		os.Remove(staging)
		m.logger.WithError(err).Error("staged package failed verification, keeping current version")
		return OutcomeFailed, err
	}

	// Swap point. From here on the operation must not be interrupted:
	// at every instant the running path holds either the old verified
	// package or the new verified package.
	m.mu.Lock()
	defer m.mu.Unlock()

	backup := m.exePath + ".bak"
	if err := os.Rename(m.exePath, backup); err != nil {
		os.Remove(staging)
		return OutcomeFailed, fmt.Errorf("failed to move current package aside: %w", err)
	}

	if err := os.Rename(staging, m.exePath); err != nil {
		// Restore the old package; the rename back is on the same
		// filesystem and cannot half-apply.
		if restoreErr := os.Rename(backup, m.exePath); restoreErr != nil {
			return OutcomeFailed, fmt.Errorf("swap failed and restore failed: %v (restore: %w)", err, restoreErr)
		}
		return OutcomeFailed, fmt.Errorf("failed to move new package into place: %w", err)
	}

	if err := m.saveState(&pendingState{Version: info.Version, BackupPath: backup}); err != nil {
		m.logger.WithError(err).Warn("failed to persist pending update state")
	}

	m.logger.Info("agent package swapped",
		logger.String(logger.FieldVersion, info.Version),
		logger.String("backup", backup),
	)

	return OutcomeUpdated, nil
}

// ConfirmCycle records the outcome of a registration cycle while an
// update is pending confirmation. A successful cycle confirms the new
// package; RollbackAfter consecutive failures restore the backup. It
// returns true when a rollback was performed and the process should
// restart.
func (m *Manager) ConfirmCycle(success bool) bool {
	state, err := m.loadState()
	if err != nil || state == nil {
		return false
	}

	if success {
		m.logger.Info("update confirmed",
			logger.String(logger.FieldVersion, state.Version),
		)
		m.clearState()
		return false
	}

	state.FailedCycles++
	if state.FailedCycles < m.rollbackAfter {
		m.logger.Warn("registration cycle failed with unconfirmed update",
			logger.Int("failed_cycles", state.FailedCycles),
			logger.Int("rollback_after", m.rollbackAfter),
		)
		if err := m.saveState(state); err != nil {
			m.logger.WithError(err).Warn("failed to persist pending update state")
		}
		return false
	}

	m.logger.Error("rolling back unconfirmed update",
		logger.String(logger.FieldVersion, state.Version),
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Rename(state.BackupPath, m.exePath); err != nil {
		m.logger.WithError(err).Error("rollback failed, backup left in place")
		return false
	}

	m.clearState()
	return true
}

func (m *Manager) loadState() (*pendingState, error) {
	raw, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var state pendingState
	if err := json.Unmarshal(raw, &state); err != nil {
		// Corrupt state is dropped rather than trusted.
		m.clearState()
		return nil, nil
	}
	return &state, nil
}

func (m *Manager) saveState(state *pendingState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(m.statePath, raw, 0o644)
}

func (m *Manager) clearState() {
	_ = os.Remove(m.statePath)
}

func verifyChecksum(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open staged package: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("failed to hash staged package: %w", err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != expected {
		return fmt.Errorf("%w: checksum %s does not match expected %s", models.ErrUpdateVerificationFailed, got, expected)
	}
	return nil
}
