package walletd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChannelLockReleasedOnFailedOpen(t *testing.T) {
	var ch fileChannel
	missing := filepath.Join(t.TempDir(), "nope.wallet")

	if err := ch.openRead(missing); err == nil {
		t.Fatal("openRead of a missing file should fail")
	}
	if ch.isOpen() {
		t.Fatal("channel reports open after failed openRead")
	}
	if !ch.mu.TryLock() {
		t.Fatal("lock still held after failed openRead")
	}
	ch.mu.Unlock()
}

func TestChannelOpenWriteTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.wallet")
	if err := os.WriteFile(path, []byte("previous-content"), 0o600); err != nil {
		t.Fatal(err)
	}

	var ch fileChannel
	if err := ch.openWrite(path); err != nil {
		t.Fatalf("openWrite: %v", err)
	}
	if _, err := ch.file().Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ch.close()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "x" {
		t.Fatalf("content %q, want truncated rewrite", got)
	}
}

func TestChannelCloseReleasesLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.wallet")
	var ch fileChannel
	if err := ch.openWrite(path); err != nil {
		t.Fatalf("openWrite: %v", err)
	}
	if ch.mu.TryLock() {
		t.Fatal("lock free while channel open")
	}
	ch.close()
	if !ch.mu.TryLock() {
		t.Fatal("lock held after close")
	}
	ch.mu.Unlock()
	if ch.isOpen() {
		t.Fatal("channel reports open after close")
	}
}

func TestCommitFileReplaces(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, "w.wallet.temp")
	real := filepath.Join(dir, "w.wallet")
	if err := os.WriteFile(temp, []byte("new"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(real, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := commitFile(temp, real); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, _ := os.ReadFile(real)
	if string(got) != "new" {
		t.Fatalf("content %q after commit", got)
	}
	if fileExists(temp) {
		t.Fatal("temp file survived the commit")
	}
}

func TestCommitFileMissingTemp(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "w.wallet")
	if err := os.WriteFile(real, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := commitFile(filepath.Join(dir, "gone.temp"), real); err == nil {
		t.Fatal("commit without a temp file should fail")
	}
	got, _ := os.ReadFile(real)
	if string(got) != "old" {
		t.Fatal("real file must survive a failed commit")
	}
}
