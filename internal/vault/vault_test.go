package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"knot-go/internal/knot"
)

// testVaultContract exercises the behavior every knot.Vault shares.
func testVaultContract(t *testing.T, newVault func(t *testing.T) knot.Vault) {
	t.Run("put and get round trip", func(t *testing.T) {
		v := newVault(t)
		data := strings.Repeat("sqlite", 1000)
		if err := v.PutSnapshot("knot-20240115T103000Z.db", strings.NewReader(data), int64(len(data)), 3); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetSnapshot("knot-20240115T103000Z.db", &buf); err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("GetSnapshot() returned %d bytes, want %d", buf.Len(), len(data))
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutSnapshot("knot-20240115T103000Z.db", strings.NewReader("hello"), 100, 1); err == nil {
			t.Error("PutSnapshot() expected size mismatch error")
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		v := newVault(t)
		var buf bytes.Buffer
		err := v.GetSnapshot("knot-20990101T000000Z.db", &buf)
		if !errors.Is(err, knot.ErrNotFound) {
			t.Errorf("GetSnapshot() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid names are rejected", func(t *testing.T) {
		v := newVault(t)
		for _, name := range []string{"../knot-x.db", "other.db", "knot-a/b.db"} {
			if err := v.PutSnapshot(name, strings.NewReader("x"), 1, 1); err == nil {
				t.Errorf("PutSnapshot(%q) expected error", name)
			}
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		v := newVault(t)
		names := []string{
			"knot-20240115T103000Z.db",
			"knot-20240301T080000Z.db.age",
			"knot-20231231T235959Z.db",
		}
		for _, name := range names {
			if err := v.PutSnapshot(name, strings.NewReader(name), int64(len(name)), 1); err != nil {
				t.Fatalf("PutSnapshot(%s) error = %v", name, err)
			}
		}

		snaps, err := v.ListSnapshots()
		if err != nil {
			t.Fatalf("ListSnapshots() error = %v", err)
		}
		want := []string{names[1], names[0], names[2]}
		if len(snaps) != len(want) {
			t.Fatalf("ListSnapshots() returned %d snapshots, want %d", len(snaps), len(want))
		}
		for i, s := range snaps {
			if s.Name != want[i] {
				t.Errorf("snaps[%d].Name = %q, want %q", i, s.Name, want[i])
			}
			if s.Size != int64(len(s.Name)) {
				t.Errorf("snaps[%d].Size = %d, want %d", i, s.Size, len(s.Name))
			}
		}
		if !snaps[0].Encrypted() || snaps[1].Encrypted() {
			t.Error("Encrypted() does not follow the .age suffix")
		}
	})

	t.Run("version only moves forward", func(t *testing.T) {
		v := newVault(t)
		if got, err := v.LatestVersion(); err != nil || got != 0 {
			t.Fatalf("LatestVersion() = %d, %v, want 0, nil", got, err)
		}
		for _, version := range []int64{5, 2} {
			if err := v.PutSnapshot("knot-20240115T103000Z.db", strings.NewReader("x"), 1, version); err != nil {
				t.Fatalf("PutSnapshot() error = %v", err)
			}
		}
		got, err := v.LatestVersion()
		if err != nil {
			t.Fatalf("LatestVersion() error = %v", err)
		}
		if got != 5 {
			t.Errorf("LatestVersion() = %d, want 5", got)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := newVault(t).ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}
