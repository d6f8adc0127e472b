package walletd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validTestConfig(dir string) *Config {
	return &Config{
		WalletFile: filepath.Join(dir, "w.wallet"),
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := validTestConfig(dir)
	cfg.Logging.Level = "  INFO "
	cfg.Normalize()

	if cfg.DataDir != dir {
		t.Errorf("data dir %q, want wallet file directory %q", cfg.DataDir, dir)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("level %q, want lowercase trimmed", cfg.Logging.Level)
	}
	if cfg.Backup.Retention != 10 {
		t.Errorf("retention %d, want 10", cfg.Backup.Retention)
	}
	if cfg.Notifications.FlushIntervalMS != 500 {
		t.Errorf("flush interval %d, want 500", cfg.Notifications.FlushIntervalMS)
	}
	if cfg.Status.RefreshSeconds != 60 {
		t.Errorf("refresh seconds %d, want 60", cfg.Status.RefreshSeconds)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing wallet file", func(c *Config) { c.WalletFile = "" }},
		{"bad extension", func(c *Config) { c.WalletFile = filepath.Join(dir, "w.dat") }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tc := range cases {
		cfg := validTestConfig(dir)
		cfg.Normalize()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}

	cfg := validTestConfig(dir)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	cfg.WalletFile = filepath.Join(dir, "w.keys")
	if err := cfg.Validate(); err != nil {
		t.Errorf("legacy key file rejected: %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walletd.yml")
	cfg := validTestConfig(dir)
	cfg.Encrypted = true
	cfg.Node.Address = "http://127.0.0.1:18082/json_rpc"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.WalletFile != cfg.WalletFile {
		t.Errorf("wallet file %q, want %q", loaded.WalletFile, cfg.WalletFile)
	}
	if !loaded.Encrypted {
		t.Error("encrypted flag lost in round trip")
	}
	if loaded.Node.Address != cfg.Node.Address {
		t.Errorf("node address %q", loaded.Node.Address)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config mode %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadOrCreateConfigWritesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walletd.yml")
	def := validTestConfig(dir)

	cfg, err := LoadOrCreateConfig(path, def)
	if err != nil {
		t.Fatalf("load or create: %v", err)
	}
	if cfg.WalletFile != def.WalletFile {
		t.Errorf("returned config differs from default")
	}
	if !fileExists(path) {
		t.Fatal("default config not written to disk")
	}

	// Second call must load the file, not rewrite it.
	if _, err := LoadOrCreateConfig(path, nil); err != nil {
		t.Fatalf("second load: %v", err)
	}
}

func TestConfigStoreUpdatePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walletd.yml")
	cfg := validTestConfig(dir)
	cfg.Normalize()
	store := NewConfigStore(path, cfg)

	if err := store.Update(func(c *Config) error {
		c.Backup.Retention = 5
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if store.Get().Backup.Retention != 5 {
		t.Error("update not visible in memory")
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Backup.Retention != 5 {
		t.Error("update not persisted to disk")
	}
}

func TestConfigStoreUpdateRejectedLeavesStateAlone(t *testing.T) {
	dir := t.TempDir()
	cfg := validTestConfig(dir)
	cfg.Normalize()
	store := NewConfigStore(filepath.Join(dir, "walletd.yml"), cfg)

	err := store.Update(func(c *Config) error {
		c.WalletFile = ""
		return nil
	})
	if err == nil {
		t.Fatal("invalid update should fail")
	}
	if store.WalletFile() != cfg.WalletFile {
		t.Error("failed update mutated the store")
	}
}

func TestSetWalletFileValidatesExtension(t *testing.T) {
	dir := t.TempDir()
	cfg := validTestConfig(dir)
	cfg.Normalize()
	store := NewConfigStore(filepath.Join(dir, "walletd.yml"), cfg)

	if err := store.SetWalletFile(filepath.Join(dir, "w.dat")); err == nil {
		t.Fatal("bad extension accepted")
	}
	next := filepath.Join(dir, "next.wallet")
	if err := store.SetWalletFile(next); err != nil {
		t.Fatalf("set wallet file: %v", err)
	}
	if store.WalletFile() != next {
		t.Errorf("wallet file %q, want %q", store.WalletFile(), next)
	}
}

func TestSetEncryptedSkipsNoOpWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walletd.yml")
	cfg := validTestConfig(dir)
	cfg.Normalize()
	store := NewConfigStore(path, cfg)

	// Unchanged value: no config file should appear.
	if err := store.SetEncrypted(false); err != nil {
		t.Fatalf("no-op set: %v", err)
	}
	if fileExists(path) {
		t.Fatal("no-op SetEncrypted wrote the config file")
	}

	if err := store.SetEncrypted(true); err != nil {
		t.Fatalf("set encrypted: %v", err)
	}
	if !store.IsEncrypted() {
		t.Error("encrypted flag not set")
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !loaded.Encrypted {
		t.Error("encrypted flag not persisted")
	}
}

func TestSaveConfigLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := validTestConfig(dir)
	if err := SaveConfig(filepath.Join(dir, "walletd.yml"), cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".walletd.config-") {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
}
