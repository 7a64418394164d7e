package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"knot-go/internal/model"
	"knot-go/internal/rules"
)

// DefaultDueSoonDays is the soon window used when due_soon_days is unset.
const DefaultDueSoonDays = 7

// Config represents the main configuration for knot.
type Config struct {
	BaseDir            string             `toml:"base_dir"`
	LogDir             string             `toml:"log_dir"`
	DueSoonDays        int                `toml:"due_soon_days"`
	DefaultCadenceDays *int               `toml:"default_cadence_days,omitempty"`
	Database           DatabaseConfig     `toml:"database"`
	Interactions       InteractionsConfig `toml:"interactions"`
	Loops              LoopsConfig        `toml:"loops"`
	Backup             BackupConfig       `toml:"backup"`
}

// DatabaseConfig represents configuration for the contact database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// InteractionsConfig controls what logging an interaction does to the schedule.
type InteractionsConfig struct {
	AutoReschedule bool `toml:"auto_reschedule"`
}

// LoopsConfig maps tags to cadences.
type LoopsConfig struct {
	DefaultCadenceDays *int             `toml:"default_cadence_days,omitempty"`
	Strategy           string           `toml:"strategy,omitempty"` // "shortest" (default) or "priority"
	ApplyOnTagChange   bool             `toml:"apply_on_tag_change"`
	ScheduleMissing    bool             `toml:"schedule_missing"`
	OverrideExisting   bool             `toml:"override_existing"`
	Anchor             string           `toml:"anchor,omitempty"` // "now" (default), "created-at" or "last-interaction"
	Rules              []LoopRuleConfig `toml:"rules,omitempty"`
}

// LoopRuleConfig is one [[loops.rules]] entry.
type LoopRuleConfig struct {
	Tag         string `toml:"tag"`
	CadenceDays int    `toml:"cadence_days"`
	Priority    int    `toml:"priority,omitempty"`
}

// BackupConfig configures snapshot backups. An empty vault type disables them.
type BackupConfig struct {
	Auto       bool             `toml:"auto"`
	Encrypt    bool             `toml:"encrypt"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type,omitempty"` // "memory", "s3", or "filesystem"
	Name string `toml:"name,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for encrypted backups.
type EncryptionConfig struct {
	Type           string `toml:"type,omitempty"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with default paths.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:     baseDir,
		LogDir:      filepath.Join(baseDir, "log"),
		DueSoonDays: DefaultDueSoonDays,
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Interactions: InteractionsConfig{AutoReschedule: true},
		Backup: BackupConfig{
			Encryption: EncryptionConfig{
				Type:           "age",
				PublicKeyPath:  filepath.Join(baseDir, "keys", "knot.pub"),
				PrivateKeyPath: filepath.Join(baseDir, "keys", "knot.key"),
			},
		},
	}
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if err := rules.ValidateSoonDays(c.DueSoonDays); err != nil {
		errs = append(errs, fmt.Errorf("due_soon_days: %w", err))
	}
	if c.DefaultCadenceDays != nil {
		if err := model.ValidateCadence(*c.DefaultCadenceDays); err != nil {
			errs = append(errs, fmt.Errorf("default_cadence_days: %w", err))
		}
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.DataDir == "" {
			errs = append(errs, errors.New("database.data_dir required for sqlite database"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown database type: %q", c.Database.Type))
	}

	if _, err := c.Loops.Policy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := rules.ParseLoopAnchor(c.Loops.Anchor); err != nil {
		errs = append(errs, fmt.Errorf("loops.anchor: %w", err))
	}

	switch c.Backup.Vault.Type {
	case "", "memory":
	case "filesystem":
		if c.Backup.Vault.FSRoot == "" {
			errs = append(errs, errors.New("backup.vault.fs_root required for filesystem vault"))
		}
	case "s3":
		if c.Backup.Vault.S3Bucket == "" {
			errs = append(errs, errors.New("backup.vault.s3_bucket required for s3 vault"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vault type: %q", c.Backup.Vault.Type))
	}
	if c.Backup.Auto && c.Backup.Vault.Type == "" {
		errs = append(errs, errors.New("backup.auto requires backup.vault"))
	}
	return errors.Join(errs...)
}

// Policy converts the loops section into a rules.LoopPolicy. Tags are
// normalized; a tag listed twice is an error.
func (l LoopsConfig) Policy() (rules.LoopPolicy, error) {
	strategy, err := rules.ParseLoopStrategy(l.Strategy)
	if err != nil {
		return rules.LoopPolicy{}, fmt.Errorf("loops.strategy: %w", err)
	}
	if l.DefaultCadenceDays != nil {
		if err := model.ValidateCadence(*l.DefaultCadenceDays); err != nil {
			return rules.LoopPolicy{}, fmt.Errorf("loops.default_cadence_days: %w", err)
		}
	}

	p := rules.LoopPolicy{DefaultCadenceDays: l.DefaultCadenceDays, Strategy: strategy}
	seen := make(map[string]bool, len(l.Rules))
	for i, r := range l.Rules {
		tag, err := model.NormalizeTag(r.Tag)
		if err != nil {
			return rules.LoopPolicy{}, fmt.Errorf("loops.rules[%d]: %w", i, err)
		}
		if seen[tag] {
			return rules.LoopPolicy{}, fmt.Errorf("loops.rules[%d]: duplicate tag %q", i, tag)
		}
		seen[tag] = true
		if err := model.ValidateCadence(r.CadenceDays); err != nil {
			return rules.LoopPolicy{}, fmt.Errorf("loops.rules[%d]: %w", i, err)
		}
		p.Rules = append(p.Rules, rules.LoopRule{Tag: tag, CadenceDays: r.CadenceDays, Priority: r.Priority})
	}
	return p, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys absent from the input
// keep their defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if !md.IsDefined("due_soon_days") {
		cfg.DueSoonDays = DefaultDueSoonDays
	}
	if !md.IsDefined("interactions", "auto_reschedule") {
		cfg.Interactions.AutoReschedule = true
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key: %s", undecoded[0])
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
