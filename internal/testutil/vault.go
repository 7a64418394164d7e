package testutil

import (
	"knot-go/internal/knot"
	"knot-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() knot.Vault {
	return vault.NewMemoryVault("test-vault")
}
