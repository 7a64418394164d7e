package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"knot-go/internal/config"
	"knot-go/internal/database"
	"knot-go/internal/encryption"
	"knot-go/internal/knot"
	"knot-go/internal/model"
	"knot-go/internal/rules"
	"knot-go/internal/vault"
)

// Options tune how a KnotApp is built.
type Options struct {
	// Verbose mirrors log output to Stderr.
	Verbose bool
	Stderr  io.Writer

	// SkipVaultCheck opens the database even when the vault holds a newer
	// snapshot. Restore needs this.
	SkipVaultCheck bool
}

// KnotApp is the application layer between the CLI and KnotService.
// It constructs all dependencies from config, records mutating commands as
// operations and runs the automatic backup on Close.
type KnotApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vault     knot.Vault
	encryptor knot.Encryptor
	service   *knot.KnotService
	clock     knot.Clock
	logger    knot.Logger
	op        *Operation
	logFile   *os.File
}

// NewKnotApp creates a fully wired KnotApp from the given config.
// operation names the CLI command being run (e.g. "add", "touch").
// The caller must call Close when done.
func NewKnotApp(cfg *config.Config, operation string, opts Options) (*KnotApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	v, err := vault.NewVaultFromConfig(cfg.Backup.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Backup.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	stderr := opts.Stderr
	if !opts.Verbose {
		stderr = nil
	}
	slogger, logFile, err := newLogger(cfg.LogDir, opID, stderr)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	if v != nil && !opts.SkipVaultCheck {
		if err := checkVaultVersion(db, v, logger); err != nil {
			db.Close()
			logFile.Close()
			return nil, err
		}
	}

	clock := knot.RealClock{}
	svc := knot.NewKnotService(db, v, enc, logger, clock, knot.UUIDGenerator{}, settings)

	return &KnotApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		service:   svc,
		clock:     clock,
		logger:    logger,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// SettingsFromConfig converts configuration into service settings. Day
// boundaries always use the machine's local zone.
func SettingsFromConfig(cfg *config.Config) (knot.Settings, error) {
	policy, err := cfg.Loops.Policy()
	if err != nil {
		return knot.Settings{}, err
	}
	anchor, err := rules.ParseLoopAnchor(cfg.Loops.Anchor)
	if err != nil {
		return knot.Settings{}, fmt.Errorf("loops.anchor: %w", err)
	}
	return knot.Settings{
		SoonDays:           cfg.DueSoonDays,
		DefaultCadenceDays: cfg.DefaultCadenceDays,
		AutoReschedule:     cfg.Interactions.AutoReschedule,
		Loops: knot.LoopSettings{
			Policy:           policy,
			ApplyOnTagChange: cfg.Loops.ApplyOnTagChange,
			ScheduleMissing:  cfg.Loops.ScheduleMissing,
			OverrideExisting: cfg.Loops.OverrideExisting,
			Anchor:           anchor,
		},
		Location: time.Local,
	}, nil
}

// checkVaultVersion refuses to run against a database older than the newest
// snapshot in the vault. An unreachable vault only logs a warning so that
// offline use keeps working.
func checkVaultVersion(db knot.Database, v knot.Vault, logger knot.Logger) error {
	remote, err := v.LatestVersion()
	if err != nil {
		logger.Warn("skipping vault version check", "error", err)
		return nil
	}
	local, err := db.MaxOperationID()
	if err != nil {
		return fmt.Errorf("checking local database version: %w", err)
	}
	if remote > local {
		return fmt.Errorf("local database is behind the backup vault (local=%d, vault=%d): restore the latest snapshot with 'knot backup restore'", local, remote)
	}
	return nil
}

// Config returns the configuration the app was built from.
func (a *KnotApp) Config() *config.Config {
	return a.cfg
}

// Service returns the underlying service for read-only commands.
func (a *KnotApp) Service() *knot.KnotService {
	return a.service
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. Only DB-mutating commands call it.
func (a *KnotApp) persistOperation(params string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = params
	id, err := a.db.CreateOperation(a.op.Name, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// mutate records an operation and runs fn, marking the operation failed
// when fn returns an error.
func (a *KnotApp) mutate(params string, fn func() error) error {
	if err := a.persistOperation(params); err != nil {
		return err
	}
	if err := fn(); err != nil {
		a.op.Fail()
		return err
	}
	return nil
}

// AddContact creates a contact.
func (a *KnotApp) AddContact(in knot.NewContactInput) (c *model.Contact, err error) {
	err = a.mutate(in.DisplayName, func() error {
		c, err = a.service.AddContact(in)
		return err
	})
	return c, err
}

// UpdateContact applies a partial update.
func (a *KnotApp) UpdateContact(id string, patch knot.ContactPatch) (c *model.Contact, err error) {
	err = a.mutate(id, func() error {
		c, err = a.service.UpdateContact(id, patch)
		return err
	})
	return c, err
}

// ArchiveContact soft-deletes a contact.
func (a *KnotApp) ArchiveContact(id string) (c *model.Contact, err error) {
	err = a.mutate(id, func() error {
		c, err = a.service.ArchiveContact(id)
		return err
	})
	return c, err
}

// UnarchiveContact restores an archived contact.
func (a *KnotApp) UnarchiveContact(id string) (c *model.Contact, err error) {
	err = a.mutate(id, func() error {
		c, err = a.service.UnarchiveContact(id)
		return err
	})
	return c, err
}

// DeleteContact removes a contact permanently.
func (a *KnotApp) DeleteContact(id string) error {
	return a.mutate(id, func() error {
		return a.service.DeleteContact(id)
	})
}

// AddEmail attaches an address to a contact.
func (a *KnotApp) AddEmail(id, email string, primary bool) (emails []model.ContactEmail, err error) {
	err = a.mutate(id+" "+email, func() error {
		emails, err = a.service.AddEmail(id, email, primary)
		return err
	})
	return emails, err
}

// RemoveEmail detaches an address from a contact.
func (a *KnotApp) RemoveEmail(id, email string) (emails []model.ContactEmail, err error) {
	err = a.mutate(id+" "+email, func() error {
		emails, err = a.service.RemoveEmail(id, email)
		return err
	})
	return emails, err
}

// SetPrimaryEmail marks an address as primary.
func (a *KnotApp) SetPrimaryEmail(id, email string) (emails []model.ContactEmail, err error) {
	err = a.mutate(id+" "+email, func() error {
		emails, err = a.service.SetPrimaryEmail(id, email)
		return err
	})
	return emails, err
}

// TagContact adds tags to a contact.
func (a *KnotApp) TagContact(id string, names []string) (tags []string, err error) {
	err = a.mutate(id, func() error {
		tags, err = a.service.TagContact(id, names...)
		return err
	})
	return tags, err
}

// UntagContact removes tags from a contact.
func (a *KnotApp) UntagContact(id string, names []string) (tags []string, err error) {
	err = a.mutate(id, func() error {
		tags, err = a.service.UntagContact(id, names...)
		return err
	})
	return tags, err
}

// SetTags replaces a contact's tags.
func (a *KnotApp) SetTags(id string, names []string) (tags []string, err error) {
	err = a.mutate(id, func() error {
		tags, err = a.service.SetTags(id, names)
		return err
	})
	return tags, err
}

// AddInteraction records an interaction. reschedule nil means the
// configured interactions.auto_reschedule.
func (a *KnotApp) AddInteraction(in knot.NewInteractionInput, reschedule *bool) (i *model.Interaction, err error) {
	err = a.mutate(in.ContactID, func() error {
		i, err = a.service.AddInteraction(in, a.reschedule(reschedule))
		return err
	})
	return i, err
}

// Touch records a touch interaction.
func (a *KnotApp) Touch(id string, reschedule *bool) (c *model.Contact, err error) {
	err = a.mutate(id, func() error {
		c, err = a.service.Touch(id, a.reschedule(reschedule))
		return err
	})
	return c, err
}

func (a *KnotApp) reschedule(override *bool) bool {
	if override != nil {
		return *override
	}
	return a.service.Settings().AutoReschedule
}

// Schedule sets a contact's next touchpoint.
func (a *KnotApp) Schedule(id, raw string) (c *model.Contact, err error) {
	err = a.mutate(id+" "+raw, func() error {
		c, err = a.service.Schedule(id, raw)
		return err
	})
	return c, err
}

// Unschedule clears a contact's next touchpoint.
func (a *KnotApp) Unschedule(id string) (c *model.Contact, err error) {
	err = a.mutate(id, func() error {
		c, err = a.service.Unschedule(id)
		return err
	})
	return c, err
}

// SetCadence sets or clears a contact's cadence.
func (a *KnotApp) SetCadence(id string, days *int) (c *model.Contact, err error) {
	err = a.mutate(id, func() error {
		c, err = a.service.SetCadence(id, days)
		return err
	})
	return c, err
}

// AddDate attaches an annual date to a contact.
func (a *KnotApp) AddDate(in knot.NewDateInput) (d *model.ContactDate, err error) {
	err = a.mutate(in.ContactID, func() error {
		d, err = a.service.AddDate(in)
		return err
	})
	return d, err
}

// RemoveDate deletes a contact date.
func (a *KnotApp) RemoveDate(dateID string) error {
	return a.mutate(dateID, func() error {
		return a.service.RemoveDate(dateID)
	})
}

// ApplyLoops sets cadences from tags. Dry runs are not recorded.
func (a *KnotApp) ApplyLoops(opts knot.LoopApplyOptions) (report *knot.LoopReport, err error) {
	if opts.DryRun {
		return a.service.ApplyLoops(opts)
	}
	err = a.mutate(opts.Filter, func() error {
		report, err = a.service.ApplyLoops(opts)
		return err
	})
	return report, err
}

// MergeContacts folds secondary into primary.
func (a *KnotApp) MergeContacts(primary, secondary string, opts knot.MergeOptions) (c *model.Contact, err error) {
	err = a.mutate(primary+" "+secondary, func() error {
		c, err = a.service.MergeContacts(primary, secondary, opts)
		return err
	})
	return c, err
}

// ScanSameName proposes merge candidates. Dry runs are not recorded.
func (a *KnotApp) ScanSameName(opts knot.ScanOptions) (report *knot.ScanReport, err error) {
	if opts.DryRun {
		return a.service.ScanSameName(opts)
	}
	err = a.mutate("same-name", func() error {
		report, err = a.service.ScanSameName(opts)
		return err
	})
	return report, err
}

// ApplyMergeCandidate merges an open candidate's pair.
func (a *KnotApp) ApplyMergeCandidate(id string, opts knot.MergeOptions) (c *model.Contact, err error) {
	err = a.mutate(id, func() error {
		c, err = a.service.ApplyMergeCandidate(id, opts)
		return err
	})
	return c, err
}

// DismissMergeCandidate closes an open candidate.
func (a *KnotApp) DismissMergeCandidate(id string) error {
	return a.mutate(id, func() error {
		return a.service.DismissMergeCandidate(id)
	})
}

// Backup writes a snapshot now. encrypt nil means the configured
// backup.encrypt.
func (a *KnotApp) Backup(encrypt *bool) (*knot.Snapshot, error) {
	enc := a.cfg.Backup.Encrypt
	if encrypt != nil {
		enc = *encrypt
	}
	return a.service.Backup(enc)
}

// SetupKeys generates the backup key pair.
func (a *KnotApp) SetupKeys(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// KeysConfigured reports whether the backup key pair exists.
func (a *KnotApp) KeysConfigured() bool {
	return a.encryptor.IsConfigured()
}

// PublicKey returns the backup recipient when the encryptor exposes one.
func (a *KnotApp) PublicKey() (string, error) {
	r, ok := a.encryptor.(interface{ Recipient() (string, error) })
	if !ok {
		return "", errors.New("encryptor has no public key")
	}
	return r.Recipient()
}

// ValidateVault checks that the configured vault is reachable.
func (a *KnotApp) ValidateVault() error {
	if a.vault == nil {
		return knot.ErrBackupNotConfigured
	}
	return a.vault.ValidateSetup()
}

// Close finalizes the operation and closes all resources.
// For persisted, successful operations with backup.auto set, a snapshot is
// written after the operation record is finished so its version is the
// operation ID.
func (a *KnotApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}

		if a.cfg.Backup.Auto && a.vault != nil && !a.op.Failed() {
			if _, err := a.service.Backup(a.cfg.Backup.Encrypt); err != nil {
				a.logger.Error("automatic backup failed", "error", err)
				if firstErr == nil {
					firstErr = fmt.Errorf("automatic backup: %w", err)
				}
			}
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
