package walletd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupDirName = "backup"

// backupTimestampLayout matches the historical backup naming, e.g.
// mywallet.02-01-2006-15-04.wallet.
const backupTimestampLayout = "02-01-2006-15-04"

// BackupWalletFile copies walletFile into <dataDir>/backup under a
// timestamped name, then prunes entries for the same wallet beyond
// retention. Called on every open of a pre-existing wallet; failures are
// the caller's to log, never fatal to the open.
func BackupWalletFile(walletFile, dataDir string, retention int) error {
	backupDir := filepath.Join(dataDir, backupDirName)
	if err := os.MkdirAll(backupDir, 0o700); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := filepath.Base(walletFile)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	stamp := time.Now().Format(backupTimestampLayout)
	destination := filepath.Join(backupDir, base+"."+stamp+ext)

	// Two opens within one minute map to the same name; replace it.
	if _, err := os.Stat(destination); err == nil {
		_ = os.Remove(destination)
	}
	if err := copyFile(walletFile, destination); err != nil {
		return err
	}
	slog.Debug("wallet backup created", "source", walletFile, "destination", destination)

	removed, err := PruneBackups(backupDir, base, ext, retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		slog.Info("old wallet backups deleted", "count", removed, "dir", backupDir)
	}
	return nil
}

// PruneBackups deletes every backup of <base>*<ext> in dir beyond the
// `keep` most recently modified ones. Returns how many were removed.
func PruneBackups(dir, base, ext string, keep int) (int, error) {
	entries, err := ListBackups(dir, base, ext)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i, e := range entries {
		if i < keep {
			continue
		}
		if err := os.Remove(e.Path); err != nil {
			return removed, fmt.Errorf("delete old backup: %w", err)
		}
		removed++
	}
	return removed, nil
}

// BackupEntry is one retained copy of a wallet file.
type BackupEntry struct {
	Path     string
	Size     int64
	Modified time.Time
}

// ListBackups returns the backups of <base>*<ext> in dir, most recently
// modified first.
func ListBackups(dir, base, ext string) ([]BackupEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var entries []BackupEntry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasPrefix(name, base) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, BackupEntry{
			Path:     filepath.Join(dir, name),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Modified.After(entries[j].Modified)
	})
	return entries, nil
}

func copyFile(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open backup source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(destination)
		return fmt.Errorf("copy wallet file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(destination)
		return fmt.Errorf("close backup file: %w", err)
	}
	return nil
}
