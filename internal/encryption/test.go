package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"knot-go/internal/knot"
)

// testHeader marks data encrypted by TestEncryptor.
var testHeader = []byte("KNOTENC\x00")

// TestEncryptor is a deterministic stand-in for AgeEncryptor. Encrypt
// prepends testHeader and Decrypt strips it, so encrypted snapshots differ
// from the plain database file without any key material.
type TestEncryptor struct {
	configured bool
	passphrase string
}

var _ knot.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor returns a TestEncryptor that reports itself configured
// and accepts any passphrase.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{configured: true}
}

// Setup records passphrase; Unlock then requires it.
func (e *TestEncryptor) Setup(passphrase string) error {
	e.configured = true
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (knot.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ knot.DecryptionContext = (*TestDecryptionContext)(nil)

var errBadHeader = errors.New("invalid test encryption header")

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return errBadHeader
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
