package knot

import (
	"io"
	"strings"
	"time"
)

// Snapshot describes one database backup held by a Vault.
type Snapshot struct {
	Name      string
	Size      int64
	CreatedAt time.Time
}

// Encrypted reports whether the snapshot was written through an Encryptor.
func (s Snapshot) Encrypted() bool {
	return strings.HasSuffix(s.Name, EncryptedSuffix)
}

// EncryptedSuffix is appended to the names of encrypted snapshots.
const EncryptedSuffix = ".age"

// Vault stores database snapshots. Operations stream through io.Reader and
// io.Writer so snapshots are never held in memory.
type Vault interface {
	// PutSnapshot stores a snapshot under name. size is the number of bytes
	// that will be read from r. version is recorded as the vault's latest
	// version when it is higher than the current one.
	PutSnapshot(name string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the named snapshot to w.
	GetSnapshot(name string, w io.Writer) error

	// ListSnapshots returns all snapshots, newest first.
	ListSnapshots() ([]Snapshot, error)

	// LatestVersion returns the highest version stored, or 0 for an empty vault.
	LatestVersion() (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
