package walletd

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// fileChannel is the single persistence channel onto the wallet file: one
// exclusive lock and at most one open descriptor. The lock is acquired
// before the file opens and released only when the channel closes, so any
// code that can see an open file also owns the lock. The bare
// lock/unlock pair additionally brackets a send cycle, where the lock is
// held with no file open.
type fileChannel struct {
	mu   sync.Mutex
	f    *os.File
	open atomic.Bool
}

// openRead acquires the lock and opens path read-only. On open failure the
// lock is released again: no channel exists without a successful open.
func (ch *fileChannel) openRead(path string) error {
	ch.mu.Lock()
	f, err := os.Open(path)
	if err != nil {
		ch.mu.Unlock()
		return fmt.Errorf("open wallet file for reading: %w", err)
	}
	ch.f = f
	ch.open.Store(true)
	return nil
}

// openWrite acquires the lock and opens path write-only, creating or
// truncating it. Read-write channels do not exist.
func (ch *fileChannel) openWrite(path string) error {
	ch.mu.Lock()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		ch.mu.Unlock()
		return fmt.Errorf("open wallet file for writing: %w", err)
	}
	ch.f = f
	ch.open.Store(true)
	return nil
}

// file exposes the descriptor to the engine. Valid only while the channel
// is open.
func (ch *fileChannel) file() *os.File {
	return ch.f
}

// close closes the descriptor and always releases the lock, regardless of
// how the channel was used.
func (ch *fileChannel) close() {
	if ch.f != nil {
		_ = ch.f.Close()
		ch.f = nil
	}
	ch.open.Store(false)
	ch.mu.Unlock()
}

// closeIfOpen closes the channel when one is open, for completion paths
// that cannot know whether the triggering operation used a file.
func (ch *fileChannel) closeIfOpen() bool {
	if !ch.open.Load() {
		return false
	}
	ch.close()
	return true
}

func (ch *fileChannel) isOpen() bool {
	return ch.open.Load()
}

func (ch *fileChannel) lock() {
	ch.mu.Lock()
}

func (ch *fileChannel) unlock() {
	ch.mu.Unlock()
}

// commitFile renames a fully written temp file over the real wallet file.
// The channel must be closed first. Readers only ever observe either the
// old complete file or the new complete file.
func commitFile(tempPath, realPath string) error {
	if _, err := os.Stat(tempPath); err != nil {
		return fmt.Errorf("temp wallet file missing: %w", err)
	}
	// Rename replaces the destination atomically; removing it first would
	// open a window with no wallet file at all.
	if err := os.Rename(tempPath, realPath); err != nil {
		return fmt.Errorf("commit wallet file: %w", err)
	}
	return nil
}
