package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"knot-go/internal/knot"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps every snapshot in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte
	created   map[string]time.Time
	version   int64
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
		created:   make(map[string]time.Time),
	}
}

// PutSnapshot stores a snapshot and raises the vault version to version.
func (m *MemoryVault) PutSnapshot(name string, r io.Reader, size int64, version int64) error {
	if err := validName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[name] = data
	m.created[name] = time.Now()
	m.version = max(m.version, version)
	return nil
}

// GetSnapshot writes the named snapshot to w.
func (m *MemoryVault) GetSnapshot(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[name]
	if !ok {
		return fmt.Errorf("snapshot %s: %w", name, knot.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// ListSnapshots returns all snapshots, newest first.
func (m *MemoryVault) ListSnapshots() ([]knot.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := make([]knot.Snapshot, 0, len(m.snapshots))
	for name, data := range m.snapshots {
		snaps = append(snaps, knot.Snapshot{Name: name, Size: int64(len(data)), CreatedAt: m.created[name]})
	}
	sortNewestFirst(snaps)
	return snaps, nil
}

// LatestVersion returns the highest version stored, or 0.
func (m *MemoryVault) LatestVersion() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.version, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements knot.Vault interface
var _ knot.Vault = (*MemoryVault)(nil)
