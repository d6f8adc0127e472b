package walletd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// ConfigStore is a threadsafe settings holder that also knows its path,
// enabling Save/Update to persist without callers passing paths around.
// The coordinator goes through it for the wallet file path and the
// encrypted flag, both of which must survive restarts.
type ConfigStore struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

func NewConfigStore(path string, cfg *Config) *ConfigStore {
	return &ConfigStore{
		path: path,
		cfg:  cfg.Clone(),
	}
}

// Get returns a defensive clone so callers cannot mutate shared state.
func (s *ConfigStore) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Set validates and applies a config in memory only (no disk write).
func (s *ConfigStore) Set(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg.Clone()
	s.mu.Unlock()
	slog.Debug("config applied in memory", "path", s.path)
	return nil
}

// Update is the mutation entry point: it clones, mutates, validates, saves
// atomically, and only then swaps the in-memory pointer.
func (s *ConfigStore) Update(fn func(*Config) error) error {
	if fn == nil {
		return fmt.Errorf("update function is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Work on a clone so callers cannot mutate shared state mid-update.
	next := s.cfg.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}
	if err := SaveConfig(s.path, next); err != nil {
		return err
	}
	s.cfg = next
	slog.Debug("config updated", "path", s.path)
	return nil
}

// WalletFile returns the current wallet file path.
func (s *ConfigStore) WalletFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.WalletFile
}

// SetWalletFile repoints the wallet at a different file and persists the
// change. The legacy import path uses this after converting a key file.
func (s *ConfigStore) SetWalletFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("wallet file path is empty")
	}
	switch filepath.Ext(path) {
	case WalletExtension, LegacyKeyExtension:
	default:
		return fmt.Errorf("wallet file must end with %s or %s", WalletExtension, LegacyKeyExtension)
	}
	return s.Update(func(c *Config) error {
		c.WalletFile = path
		return nil
	})
}

// IsEncrypted reports whether the wallet file is password protected.
func (s *ConfigStore) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Encrypted
}

// SetEncrypted persists the encrypted flag. A no-op write is skipped so
// every open does not churn the config file.
func (s *ConfigStore) SetEncrypted(encrypted bool) error {
	s.mu.RLock()
	unchanged := s.cfg.Encrypted == encrypted
	s.mu.RUnlock()
	if unchanged {
		return nil
	}
	return s.Update(func(c *Config) error {
		c.Encrypted = encrypted
		return nil
	})
}
