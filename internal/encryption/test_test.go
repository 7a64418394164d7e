package encryption

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestTestEncryptor_Passphrase(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	if !e.IsConfigured() {
		t.Fatal("IsConfigured() = false for a new test encryptor")
	}
	if _, err := e.Unlock("anything"); err != nil {
		t.Errorf("Unlock() before Setup error = %v, want any passphrase accepted", err)
	}

	if err := e.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	if _, err := e.Unlock("secret"); err != nil {
		t.Errorf("Unlock(secret) error = %v", err)
	}
}

func TestTestEncryptor_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	snapshots := map[string][]byte{
		"sqlite page": append([]byte("SQLite format 3\x00"), bytes.Repeat([]byte{0}, 4080)...),
		"empty":       {},
		"large":       bytes.Repeat([]byte("contact row;"), 50000),
	}

	for name, plain := range snapshots {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e := NewTestEncryptor()

			var sealed bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(plain), &sealed); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if got, want := sealed.Len(), len(testHeader)+len(plain); got != want {
				t.Errorf("sealed length = %d, want %d", got, want)
			}
			if !bytes.HasPrefix(sealed.Bytes(), []byte("KNOTENC")) {
				t.Errorf("sealed snapshot starts with %q", sealed.Bytes()[:len(testHeader)])
			}

			dc, err := e.Unlock("")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var opened bytes.Buffer
			if err := dc.Decrypt(&sealed, &opened); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(opened.Bytes(), plain) {
				t.Errorf("round trip changed %d bytes into %d bytes", len(plain), opened.Len())
			}
		})
	}
}

func TestTestDecryptionContext_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"plain database", []byte("SQLite format 3\x00rest"), errBadHeader},
		{"truncated header", []byte("KNOT"), io.ErrUnexpectedEOF},
		{"empty", nil, io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			err := (&TestDecryptionContext{}).Decrypt(bytes.NewReader(tt.input), &out)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decrypt() error = %v, want %v", err, tt.want)
			}
			if out.Len() != 0 {
				t.Errorf("Decrypt() wrote %d bytes on failure", out.Len())
			}
		})
	}
}
