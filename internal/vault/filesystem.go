package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"knot-go/internal/knot"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores snapshots as files in a directory structure:
//
//	<root>/
//	  snapshots/
//	    knot-<timestamp>.db[.age]
//	  VERSION        (highest snapshot version)
type FileSystemVault struct {
	name        string
	root        string
	snapshotDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		snapshotDir: snapshotDir,
	}, nil
}

// PutSnapshot stores a snapshot and raises the vault version to version.
func (v *FileSystemVault) PutSnapshot(name string, r io.Reader, size int64, version int64) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := v.writeFile(filepath.Join(v.snapshotDir, name), r, size); err != nil {
		return err
	}

	current, err := v.LatestVersion()
	if err != nil {
		return err
	}
	if version <= current {
		return nil
	}
	versionPath := filepath.Join(v.root, "VERSION")
	return os.WriteFile(versionPath, []byte(strconv.FormatInt(version, 10)), 0644)
}

// GetSnapshot writes the named snapshot to w.
func (v *FileSystemVault) GetSnapshot(name string, w io.Writer) error {
	if err := validName(name); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(v.snapshotDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("snapshot %s: %w", name, knot.ErrNotFound)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns all snapshots, newest first.
func (v *FileSystemVault) ListSnapshots() ([]knot.Snapshot, error) {
	entries, err := os.ReadDir(v.snapshotDir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var snaps []knot.Snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), knot.SnapshotPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat snapshot %s: %w", e.Name(), err)
		}
		snaps = append(snaps, knot.Snapshot{Name: e.Name(), Size: info.Size(), CreatedAt: info.ModTime()})
	}
	sortNewestFirst(snaps)
	return snaps, nil
}

// LatestVersion returns the vault version.
// Returns 0 if no version file exists.
func (v *FileSystemVault) LatestVersion() (int64, error) {
	data, err := os.ReadFile(filepath.Join(v.root, "VERSION"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.snapshotDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// validName rejects names that are not plain snapshot file names.
func validName(name string) error {
	if !strings.HasPrefix(name, knot.SnapshotPrefix) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid snapshot name: %q", name)
	}
	return nil
}

// sortNewestFirst orders snapshots by name descending. Names embed a UTC
// timestamp, so this is creation order.
func sortNewestFirst(snaps []knot.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name > snaps[j].Name })
}

// Compile-time check that FileSystemVault implements knot.Vault interface
var _ knot.Vault = (*FileSystemVault)(nil)
