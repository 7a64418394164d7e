package testutil

import (
	"testing"
	"time"

	"knot-go/internal/knot"
)

// Env bundles a KnotService with the fakes behind it.
type Env struct {
	Service   *knot.KnotService
	Database  knot.Database
	Vault     knot.Vault
	Encryptor knot.Encryptor
	Clock     *StubClock
	IDs       *StubIDGenerator
}

// DefaultSettings returns the settings most service tests run with: a
// seven day soon window and days measured in UTC.
func DefaultSettings() knot.Settings {
	return knot.Settings{SoonDays: 7, Location: time.UTC}
}

// NewTestService builds a KnotService over an in-memory database, a memory
// vault and the test encryptor, with the clock at FixedClock. settings are
// used as given, except that a nil Location means UTC.
func NewTestService(t *testing.T, settings knot.Settings) *Env {
	t.Helper()

	if settings.Location == nil {
		settings.Location = time.UTC
	}

	env := &Env{
		Database:  NewTestDatabase(t),
		Vault:     NewTestVault(),
		Encryptor: NewTestEncryptor(),
		Clock:     FixedClock(),
		IDs:       NewStubIDGenerator(),
	}
	env.Service = knot.NewKnotService(env.Database, env.Vault, env.Encryptor,
		knot.NewNopLogger(), env.Clock, env.IDs, settings)
	return env
}
