package walletd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	// WalletExtension is the on-disk format written by the engine.
	WalletExtension = ".wallet"
	// LegacyKeyExtension marks old key files needing conversion on open.
	LegacyKeyExtension = ".keys"
)

// Config is the full runtime configuration loaded from walletd.yml.
// It is treated as immutable once applied to the ConfigStore.
type Config struct {
	WalletFile string `yaml:"wallet_file"`
	DataDir    string `yaml:"data_dir,omitempty"`
	// Encrypted records whether the wallet file is password protected.
	// It is maintained by the coordinator, not edited by hand.
	Encrypted     bool               `yaml:"encrypted"`
	Logging       LoggingConfig      `yaml:"logging,omitempty"`
	Node          NodeConfig         `yaml:"node,omitempty"`
	Backup        BackupConfig       `yaml:"backup,omitempty"`
	Notifications NotificationConfig `yaml:"notifications,omitempty"`
	Status        StatusConfig       `yaml:"status,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NodeConfig locates the local node's wallet-rpc endpoint used for the
// status line. Password may be left empty and supplied interactively.
type NodeConfig struct {
	Address  string `yaml:"address,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type BackupConfig struct {
	// Retention caps how many timestamped copies of one wallet survive
	// an open-triggered rotation.
	Retention int `yaml:"retention,omitempty"`
}

type NotificationConfig struct {
	// FlushIntervalMS paces transaction notifications while the wallet
	// is still synchronizing.
	FlushIntervalMS int `yaml:"flush_interval_ms,omitempty"`
}

type StatusConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds,omitempty"`
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// Normalize fills defaults and stabilizes whitespace so reloads and saves
// round-trip without churn.
func (c *Config) Normalize() {
	c.WalletFile = strings.TrimSpace(c.WalletFile)
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" && c.WalletFile != "" {
		c.DataDir = filepath.Dir(c.WalletFile)
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	} else {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	}
	c.Node.Address = strings.TrimSpace(c.Node.Address)
	if c.Backup.Retention <= 0 {
		c.Backup.Retention = 10
	}
	if c.Notifications.FlushIntervalMS <= 0 {
		c.Notifications.FlushIntervalMS = 500
	}
	if c.Status.RefreshSeconds <= 0 {
		c.Status.RefreshSeconds = 60
	}
}

// Validate checks that the normalized config is internally consistent.
func (c *Config) Validate() error {
	if c.WalletFile == "" {
		return fmt.Errorf("wallet_file is required")
	}
	switch filepath.Ext(c.WalletFile) {
	case WalletExtension, LegacyKeyExtension:
	default:
		return fmt.Errorf("wallet_file must end with %s or %s", WalletExtension, LegacyKeyExtension)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if _, ok := parseLogLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Backup.Retention <= 0 {
		return fmt.Errorf("backup.retention must be > 0")
	}
	if c.Notifications.FlushIntervalMS <= 0 {
		return fmt.Errorf("notifications.flush_interval_ms must be > 0")
	}
	if c.Status.RefreshSeconds <= 0 {
		return fmt.Errorf("status.refresh_seconds must be > 0")
	}
	return nil
}

func LoadOrCreateConfig(path string, defaultCfg *Config) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, nil
	}

	// Any errors other than file not found?
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := SaveConfig(path, defaultCfg); err != nil {
		return nil, err
	}

	return defaultCfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	// Normalize before save so the watcher can re-load without churn.
	cfg.Normalize()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return saveConfigAtomic(path, data)
}

// saveConfigAtomic writes to a temp file in the same directory and renames
// it, so readers never observe partial writes and fsnotify sees a clean
// replace.
func saveConfigAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".walletd.config-*.yml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
