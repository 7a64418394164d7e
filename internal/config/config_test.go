package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/home/user/.local/share/knot")
	original.DueSoonDays = 14
	original.DefaultCadenceDays = intPtr(30)
	original.Interactions.AutoReschedule = false
	original.Loops = LoopsConfig{
		Strategy:         "priority",
		ApplyOnTagChange: true,
		ScheduleMissing:  true,
		Anchor:           "last-interaction",
		Rules: []LoopRuleConfig{
			{Tag: "family", CadenceDays: 7, Priority: 10},
			{Tag: "friends", CadenceDays: 30},
		},
	}
	original.Backup.Auto = true
	original.Backup.Encrypt = true
	original.Backup.Vault = VaultConfig{Type: "filesystem", Name: "local", FSRoot: "/backup/knot"}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.DueSoonDays != 14 {
		t.Errorf("DueSoonDays = %d, want 14", got.DueSoonDays)
	}
	if got.DefaultCadenceDays == nil || *got.DefaultCadenceDays != 30 {
		t.Errorf("DefaultCadenceDays = %v, want 30", got.DefaultCadenceDays)
	}
	if got.Interactions.AutoReschedule {
		t.Error("Interactions.AutoReschedule = true, want false")
	}
	if got.Loops.Strategy != "priority" {
		t.Errorf("Loops.Strategy = %q, want %q", got.Loops.Strategy, "priority")
	}
	if len(got.Loops.Rules) != 2 {
		t.Fatalf("len(Loops.Rules) = %d, want 2", len(got.Loops.Rules))
	}
	if got.Loops.Rules[0].Priority != 10 {
		t.Errorf("Loops.Rules[0].Priority = %d, want 10", got.Loops.Rules[0].Priority)
	}
	if got.Backup.Vault.FSRoot != "/backup/knot" {
		t.Errorf("Backup.Vault.FSRoot = %q, want %q", got.Backup.Vault.FSRoot, "/backup/knot")
	}
	if got.Backup.Encryption.PrivateKeyPath != original.Backup.Encryption.PrivateKeyPath {
		t.Errorf("Backup.Encryption.PrivateKeyPath = %q, want %q", got.Backup.Encryption.PrivateKeyPath, original.Backup.Encryption.PrivateKeyPath)
	}
}

func TestManager_Read_Defaults(t *testing.T) {
	m := &Manager{}
	got, err := m.Read(strings.NewReader("[database]\ntype = \"memory\"\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.DueSoonDays != DefaultDueSoonDays {
		t.Errorf("DueSoonDays = %d, want %d", got.DueSoonDays, DefaultDueSoonDays)
	}
	if !got.Interactions.AutoReschedule {
		t.Error("Interactions.AutoReschedule = false, want true")
	}

	got, err = m.Read(strings.NewReader("due_soon_days = 0\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.DueSoonDays != 0 {
		t.Errorf("explicit DueSoonDays = %d, want 0", got.DueSoonDays)
	}
}

func TestManager_Read_UnknownKey(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader("due_son_days = 3\n")); err == nil {
		t.Fatal("Read() expected error for unknown key")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/knot")

	if cfg.BaseDir != "/data/knot" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/knot")
	}
	if cfg.LogDir != "/data/knot/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/knot/log")
	}
	if cfg.Database.DataDir != "/data/knot/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/knot/db")
	}
	if cfg.Backup.Encryption.PublicKeyPath != "/data/knot/keys/knot.pub" {
		t.Errorf("Backup.Encryption.PublicKeyPath = %q, want %q", cfg.Backup.Encryption.PublicKeyPath, "/data/knot/keys/knot.pub")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"soon days out of range", func(c *Config) { c.DueSoonDays = 4000 }},
		{"default cadence zero", func(c *Config) { c.DefaultCadenceDays = intPtr(0) }},
		{"unknown database", func(c *Config) { c.Database.Type = "postgres" }},
		{"sqlite without data dir", func(c *Config) { c.Database.DataDir = "" }},
		{"unknown strategy", func(c *Config) { c.Loops.Strategy = "random" }},
		{"unknown anchor", func(c *Config) { c.Loops.Anchor = "yesterday" }},
		{"duplicate loop tag", func(c *Config) {
			c.Loops.Rules = []LoopRuleConfig{{Tag: "Close Friends", CadenceDays: 7}, {Tag: "close-friends", CadenceDays: 14}}
		}},
		{"loop cadence out of range", func(c *Config) {
			c.Loops.Rules = []LoopRuleConfig{{Tag: "work", CadenceDays: 0}}
		}},
		{"filesystem vault without root", func(c *Config) { c.Backup.Vault.Type = "filesystem" }},
		{"s3 vault without bucket", func(c *Config) { c.Backup.Vault.Type = "s3" }},
		{"auto backup without vault", func(c *Config) { c.Backup.Auto = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data/knot")
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestLoopsConfig_Policy(t *testing.T) {
	l := LoopsConfig{
		Strategy: "priority",
		Rules: []LoopRuleConfig{
			{Tag: " Close  Friends ", CadenceDays: 14, Priority: 5},
		},
	}
	p, err := l.Policy()
	if err != nil {
		t.Fatalf("Policy() error = %v", err)
	}
	if len(p.Rules) != 1 || p.Rules[0].Tag != "close-friends" {
		t.Fatalf("Rules = %+v, want one rule tagged close-friends", p.Rules)
	}
	days, matched := p.ResolveCadence([]string{"close-friends"})
	if !matched || days == nil || *days != 14 {
		t.Errorf("ResolveCadence() = %v, %v, want 14, true", days, matched)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "knot.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "knot.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "knot.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
		if got.BaseDir != dir {
			t.Errorf("BaseDir = %q, want %q", got.BaseDir, dir)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/knot.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
