// Package knot is the orchestration layer between the command-line front end
// and storage. It applies the scheduling rules, threads configuration into
// them as parameters, and logs what it changes.
package knot

import (
	"errors"
	"fmt"
	"time"

	"knot-go/internal/model"
	"knot-go/internal/rules"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrBackupNotConfigured is returned by backup operations without a vault.
var ErrBackupNotConfigured = errors.New("no backup vault configured")

// LoopSettings controls how tag-driven cadences are applied.
type LoopSettings struct {
	Policy           rules.LoopPolicy
	ApplyOnTagChange bool
	ScheduleMissing  bool
	OverrideExisting bool
	Anchor           rules.LoopAnchor
}

// Settings are the configuration values the service threads into the rules.
type Settings struct {
	SoonDays           int
	DefaultCadenceDays *int
	AutoReschedule     bool
	Loops              LoopSettings
	// Location is the zone used for day boundaries. nil means time.Local.
	Location *time.Location
}

// KnotService coordinates storage, rules and backups for the CLI.
type KnotService struct {
	database  Database
	vault     Vault
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	settings  Settings
}

// NewKnotService creates a KnotService. vault and encryptor may be nil when
// backups are not configured.
func NewKnotService(database Database, vault Vault, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator, settings Settings) *KnotService {
	return &KnotService{
		database:  database,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		settings:  settings,
	}
}

// Settings returns the settings the service was built with.
func (s *KnotService) Settings() Settings {
	return s.settings
}

func (s *KnotService) loc() *time.Location {
	if s.settings.Location != nil {
		return s.settings.Location
	}
	return time.Local
}

// now is truncated to seconds, the precision timestamps are stored with.
func (s *KnotService) now() time.Time {
	return s.clock.Now().Truncate(time.Second)
}

func (s *KnotService) mustContact(id string) (*model.Contact, error) {
	c, err := s.database.FindContact(id)
	if err != nil {
		return nil, fmt.Errorf("finding contact: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// parseTouchpoint reads a user-supplied touchpoint and applies the
// reschedule guard.
func (s *KnotService) parseTouchpoint(raw string, now time.Time) (time.Time, error) {
	t, precision, err := rules.ParseLocalTimestamp(raw, s.loc())
	if err != nil {
		return time.Time{}, err
	}
	return rules.EnsureFuture(now, t, precision, s.loc())
}
