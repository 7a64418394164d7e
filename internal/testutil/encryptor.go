package testutil

import (
	"knot-go/internal/encryption"
	"knot-go/internal/knot"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() knot.Encryptor {
	return encryption.NewTestEncryptor()
}
