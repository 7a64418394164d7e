package knot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotPrefix starts every snapshot name.
const SnapshotPrefix = "knot-"

const snapshotExt = ".db"

// SnapshotName returns the vault name for a snapshot taken now.
func (s *KnotService) SnapshotName(encrypted bool) string {
	name := SnapshotPrefix + s.now().UTC().Format("20060102T150405Z") + snapshotExt
	if encrypted {
		name += EncryptedSuffix
	}
	return name
}

// Backup snapshots the database into the vault, encrypting it when encrypt
// is set. The snapshot's version is the newest recorded operation id.
func (s *KnotService) Backup(encrypt bool) (*Snapshot, error) {
	if s.vault == nil {
		return nil, ErrBackupNotConfigured
	}
	if encrypt && (s.encryptor == nil || !s.encryptor.IsConfigured()) {
		return nil, errors.New("backup encryption is not set up: run 'knot backup keys'")
	}

	version, err := s.database.MaxOperationID()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "knot-backup-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	plainPath := filepath.Join(tmpDir, "snapshot"+snapshotExt)
	if err := s.database.BackupTo(plainPath); err != nil {
		return nil, fmt.Errorf("snapshotting database: %w", err)
	}

	uploadPath := plainPath
	if encrypt {
		uploadPath = plainPath + EncryptedSuffix
		if err := encryptFile(s.encryptor, plainPath, uploadPath); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	snap := &Snapshot{Name: s.SnapshotName(encrypt), Size: info.Size(), CreatedAt: s.now()}
	if err := s.vault.PutSnapshot(snap.Name, f, snap.Size, version); err != nil {
		return nil, fmt.Errorf("uploading snapshot: %w", err)
	}
	s.logger.Info("backup written", "name", snap.Name, "size", snap.Size, "version", version, "encrypted", encrypt)
	return snap, nil
}

func encryptFile(enc Encryptor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return out.Close()
}

// ListBackups returns the vault's snapshots, newest first.
func (s *KnotService) ListBackups() ([]Snapshot, error) {
	if s.vault == nil {
		return nil, ErrBackupNotConfigured
	}
	snaps, err := s.vault.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return snaps, nil
}

// RestoreBackup downloads a snapshot to destPath. Encrypted snapshots are
// decrypted with the private key unlocked by passphrase. destPath must not
// exist; the file is written atomically.
func (s *KnotService) RestoreBackup(name, passphrase, destPath string) error {
	if s.vault == nil {
		return ErrBackupNotConfigured
	}
	if !strings.HasPrefix(name, SnapshotPrefix) {
		return fmt.Errorf("snapshot %s: %w", name, ErrNotFound)
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("refusing to overwrite existing file: %s", destPath)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".knot-restore-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	var w io.Writer = tmp
	var pw *io.PipeWriter
	done := make(chan error, 1)
	if (Snapshot{Name: name}).Encrypted() {
		if s.encryptor == nil {
			tmp.Close()
			return errors.New("snapshot is encrypted but no encryption is configured")
		}
		dc, err := s.encryptor.Unlock(passphrase)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("unlocking private key: %w", err)
		}
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		go func() {
			err := dc.Decrypt(pr, tmp)
			pr.CloseWithError(err)
			done <- err
		}()
		w = pw
	}

	getErr := s.vault.GetSnapshot(name, w)
	if pw != nil {
		pw.CloseWithError(getErr)
		if err := <-done; err != nil && getErr == nil {
			getErr = fmt.Errorf("decrypting snapshot: %w", err)
		}
	}
	if err := tmp.Close(); err != nil && getErr == nil {
		getErr = err
	}
	if getErr != nil {
		return fmt.Errorf("restoring snapshot: %w", getErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("moving restored snapshot into place: %w", err)
	}
	success = true
	s.logger.Info("backup restored", "name", name, "dest", destPath)
	return nil
}
