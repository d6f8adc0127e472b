package walletd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	walletif "github.com/walletgui/walletd/wallet_interfaces"
)

// LifecycleState is the externally observable phase of the wallet.
// Exactly one engine instance exists iff the state is not Closed.
type LifecycleState int

const (
	StateClosed LifecycleState = iota
	StateOpening
	StateReady
	StateSaving
	StateSending
	StateClosing
)

func (s LifecycleState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateSending:
		return "sending"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// saveIntent tags an in-flight save so the completion path branches on
// data carried through the operation instead of a shared flag. A backup
// save must never replace the live wallet file.
type saveIntent int

const (
	saveNone saveIntent = iota
	saveNormal
	saveBackup
)

const tempFileSuffix = ".temp"

// Coordinator sequences wallet open/save/close/send against asynchronous
// engine callbacks. A single run-loop goroutine owns all lifecycle state;
// public operations execute as queued tasks, and engine callbacks are
// marshaled onto the same loop after doing only channel-lock work inline.
type Coordinator struct {
	node     walletif.Node
	importer walletif.LegacyKeyImporter
	chain    walletif.ChainSource
	store    *ConfigStore
	notifier *Notifier

	channel fileChannel

	tasks  chan func()
	events chan func()
	quit   chan struct{}
	once   sync.Once

	// Owned by the run loop.
	engine       walletif.Engine
	state        LifecycleState
	synchronized bool
	pendingTx    walletif.TransactionID
	txNotifier   *txNotifier
	syncStatus   *rate.Limiter
	statusTimer  *time.Timer

	// Written while the channel lock is held at save() time and read in
	// the save-completion path before the lock is released.
	saveIntent saveIntent
	saveTemp   string
}

// NewCoordinator wires the coordinator and starts its run loop. importer
// and chain may be nil when legacy import or the status line are not
// needed.
func NewCoordinator(node walletif.Node, importer walletif.LegacyKeyImporter, chain walletif.ChainSource, store *ConfigStore, notifier *Notifier) *Coordinator {
	cfg := store.Get()
	c := &Coordinator{
		node:       node,
		importer:   importer,
		chain:      chain,
		store:      store,
		notifier:   notifier,
		tasks:      make(chan func(), 16),
		events:     make(chan func(), 256),
		quit:       make(chan struct{}),
		state:      StateClosed,
		pendingTx:  walletif.InvalidTransactionID,
		syncStatus: rate.NewLimiter(syncStatusRate, syncStatusBurst),
	}
	c.txNotifier = newTxNotifier(
		time.Duration(cfg.Notifications.FlushIntervalMS)*time.Millisecond,
		c.post,
		c.flushPendingTransaction,
	)
	go c.loop()
	return c
}

// Stop terminates the run loop. The wallet should be closed first; any
// operation issued after Stop fails with ErrCoordinatorStopped.
func (c *Coordinator) Stop() {
	c.once.Do(func() { close(c.quit) })
}

func (c *Coordinator) loop() {
	for {
		select {
		case fn := <-c.events:
			fn()
		case fn := <-c.tasks:
			fn()
		case <-c.quit:
			return
		}
	}
}

// exec runs fn on the run loop and waits for its result.
func (c *Coordinator) exec(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case c.tasks <- func() { errc <- fn() }:
	case <-c.quit:
		return ErrCoordinatorStopped
	}
	select {
	case err := <-errc:
		return err
	case <-c.quit:
		return ErrCoordinatorStopped
	}
}

// post queues fn for the run loop without waiting. Used by engine
// callbacks and timers; silently dropped once the coordinator stopped.
func (c *Coordinator) post(fn func()) {
	select {
	case c.events <- fn:
	case <-c.quit:
	}
}

// drainEvents processes already queued callback work inline. Only close
// teardown uses it, so queued notifications reach subscribers before the
// handle disappears.
func (c *Coordinator) drainEvents() {
	for {
		select {
		case fn := <-c.events:
			fn()
		default:
			return
		}
	}
}

func (c *Coordinator) emitState(status string) {
	c.notifier.publish(Event{Kind: EventStateChanged, Status: status})
}

// Open loads the wallet at the configured path, or creates a fresh
// unencrypted wallet when no file exists yet. Completion of the load is
// asynchronous and arrives via the init-completed event.
func (c *Coordinator) Open(password string) error {
	return c.exec(func() error { return c.doOpen(password) })
}

func (c *Coordinator) doOpen(password string) error {
	if c.engine != nil {
		return ErrWalletAlreadyOpen
	}

	if err := c.store.SetEncrypted(password != ""); err != nil {
		slog.Warn("persisting encrypted flag failed", "error", err)
	}
	c.emitState("Opening wallet")
	c.state = StateOpening

	c.engine = c.node.CreateWallet()
	c.engine.AddObserver(c)

	walletFile := c.store.WalletFile()
	if fileExists(walletFile) {
		if err := BackupWalletFile(walletFile, c.store.Get().DataDir, c.store.Get().Backup.Retention); err != nil {
			// Best effort only; a failed backup never blocks the open.
			slog.Warn("wallet backup failed", "wallet_file", walletFile, "error", err)
		}

		if strings.HasSuffix(walletFile, LegacyKeyExtension) {
			if err := c.doImportLegacy(password); err != nil {
				return err
			}
			walletFile = c.store.WalletFile()
		}

		if err := c.channel.openRead(walletFile); err != nil {
			c.destroyEngine()
			return err
		}
		if err := c.engine.InitAndLoad(c.channel.file(), password); err != nil {
			c.channel.close()
			c.destroyEngine()
			return fmt.Errorf("init wallet from file: %w", err)
		}
		return nil
	}

	if err := c.store.SetEncrypted(false); err != nil {
		slog.Warn("persisting encrypted flag failed", "error", err)
	}
	if err := c.engine.InitAndGenerate(""); err != nil {
		c.destroyEngine()
		return fmt.Errorf("generate wallet: %w", err)
	}
	return nil
}

// CreateWithKeys opens a fresh engine instance seeded with existing key
// material. No file I/O happens until the init-completed save.
func (c *Coordinator) CreateWithKeys(keys walletif.AccountKeys) error {
	return c.exec(func() error {
		if c.engine != nil {
			return ErrWalletAlreadyOpen
		}
		if err := c.store.SetEncrypted(false); err != nil {
			slog.Warn("persisting encrypted flag failed", "error", err)
		}
		c.emitState("Importing keys")
		c.state = StateOpening

		c.engine = c.node.CreateWallet()
		c.engine.AddObserver(c)
		if err := c.engine.InitWithKeys(keys, ""); err != nil {
			c.destroyEngine()
			return fmt.Errorf("init wallet with keys: %w", err)
		}
		return nil
	})
}

// ImportLegacyWallet converts the configured legacy key file into the
// current wallet format and repoints the configuration at the result.
func (c *Coordinator) ImportLegacyWallet(password string) error {
	return c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		return c.doImportLegacy(password)
	})
}

// doImportLegacy performs the synchronous legacy-key conversion. On any
// failure the engine handle is destroyed; the wrong-password case
// additionally re-marks the wallet encrypted and requests a password.
func (c *Coordinator) doImportLegacy(password string) error {
	legacyFile := c.store.WalletFile()
	if !strings.HasSuffix(legacyFile, LegacyKeyExtension) {
		return ErrNotLegacyWallet
	}
	if c.importer == nil {
		c.destroyEngine()
		return fmt.Errorf("no legacy key importer configured")
	}
	if err := c.store.SetEncrypted(password != ""); err != nil {
		slog.Warn("persisting encrypted flag failed", "error", err)
	}

	walletFile := strings.TrimSuffix(legacyFile, LegacyKeyExtension) + WalletExtension
	if err := c.channel.openWrite(walletFile); err != nil {
		c.destroyEngine()
		return err
	}

	if err := c.importer.ImportKeys(legacyFile, password, c.channel.file()); err != nil {
		c.channel.close()
		_ = os.Remove(walletFile)
		if code, ok := walletif.CodeOf(err); ok && code == walletif.WrongPassword {
			if serr := c.store.SetEncrypted(true); serr != nil {
				slog.Warn("persisting encrypted flag failed", "error", serr)
			}
			c.notifier.publish(Event{Kind: EventPasswordRequired, WasEncrypted: password != ""})
		}
		c.destroyEngine()
		return fmt.Errorf("import legacy keys: %w", err)
	}
	c.channel.close()

	if err := c.store.SetWalletFile(walletFile); err != nil {
		c.destroyEngine()
		return fmt.Errorf("repoint wallet file after import: %w", err)
	}
	slog.Info("legacy wallet imported", "from", legacyFile, "to", walletFile)
	return nil
}

// Save serializes the wallet to <wallet_file>.temp; the commit over the
// real file happens in the save-completed path, so the on-disk wallet is
// never partially written.
func (c *Coordinator) Save(details, cache bool) error {
	return c.exec(func() error {
		return c.doSave(c.store.WalletFile()+tempFileSuffix, details, cache, saveNormal)
	})
}

// SaveTo serializes the wallet to an explicit path with normal commit
// semantics skipped only for backups; see Backup.
func (c *Coordinator) SaveTo(path string, details, cache bool) error {
	return c.exec(func() error {
		return c.doSave(path, details, cache, saveNormal)
	})
}

// Backup writes a standalone copy of the wallet. The completion path
// leaves the live wallet file untouched.
func (c *Coordinator) Backup(path string) error {
	return c.exec(func() error {
		if !strings.HasSuffix(path, WalletExtension) {
			path += WalletExtension
		}
		return c.doSave(path, true, false, saveBackup)
	})
}

func (c *Coordinator) doSave(path string, details, cache bool, intent saveIntent) error {
	if c.engine == nil {
		return ErrWalletNotOpen
	}
	if err := c.channel.openWrite(path); err != nil {
		return err
	}
	c.saveIntent = intent
	c.saveTemp = path

	if err := c.engine.Save(c.channel.file(), details, cache); err != nil {
		c.saveIntent = saveNone
		c.channel.close()
		return fmt.Errorf("save wallet: %w", err)
	}
	if c.state == StateReady {
		c.state = StateSaving
	}
	c.emitState("Saving data")
	return nil
}

// Close flushes a full save, waits for it to commit, tears the engine
// down and reports the close. A failed flush is returned after teardown
// completes so callers can warn without being stuck with a half-open
// wallet.
func (c *Coordinator) Close() error {
	return c.exec(func() error { return c.teardown(true, true) })
}

// Reset is Close with a lightweight flush (no details, no cache), for
// discarding wallet state without a backup-quality save.
func (c *Coordinator) Reset() error {
	return c.exec(func() error { return c.teardown(false, false) })
}

func (c *Coordinator) teardown(details, cache bool) error {
	if c.engine == nil {
		return ErrWalletNotOpen
	}

	saveErr := c.doSave(c.store.WalletFile()+tempFileSuffix, details, cache, saveNormal)
	if saveErr != nil {
		slog.Warn("final save failed during wallet teardown", "error", saveErr)
	}
	c.state = StateClosing

	// Blocks until the in-flight save (or send) completes and releases
	// the channel lock from the engine's side.
	c.channel.lock()
	c.engine.RemoveObserver(c)
	c.synchronized = false
	c.txNotifier.stop()
	c.pendingTx = walletif.InvalidTransactionID
	c.notifier.publish(Event{Kind: EventCloseCompleted})
	c.drainEvents()
	c.engine.Shutdown()
	c.engine = nil
	c.state = StateClosed
	c.channel.unlock()

	if saveErr != nil {
		return fmt.Errorf("wallet closed, final save failed: %w", saveErr)
	}
	return nil
}

// SendTransaction hands a transfer to the engine. The channel lock taken
// here is held until the send-completed callback fires, so at most one
// send is ever in flight.
func (c *Coordinator) SendTransaction(transfers []walletif.Transfer, fee uint64, paymentID string, mixin uint64) error {
	return c.exec(func() error { return c.doSend(transfers, fee, paymentID, mixin) })
}

func (c *Coordinator) doSend(transfers []walletif.Transfer, fee uint64, paymentID string, mixin uint64) error {
	if c.engine == nil {
		return ErrWalletNotOpen
	}
	paymentIDBytes, err := c.node.ConvertPaymentID(paymentID)
	if err != nil {
		return fmt.Errorf("convert payment id: %w", err)
	}

	c.channel.lock()
	if err := c.engine.SendTransaction(transfers, fee, paymentIDBytes, mixin); err != nil {
		c.channel.unlock()
		return fmt.Errorf("send transaction: %w", err)
	}
	if c.state == StateReady {
		c.state = StateSending
	}
	c.emitState("Sending transaction")
	return nil
}

// ChangePassword updates the engine password and, on success, persists
// the encrypted flag and flushes a full save immediately so the change is
// durable before callers rely on it.
func (c *Coordinator) ChangePassword(oldPassword, newPassword string) error {
	return c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		if code := c.engine.ChangePassword(oldPassword, newPassword); code != walletif.Ok {
			return code
		}
		if err := c.store.SetEncrypted(newPassword != ""); err != nil {
			slog.Warn("persisting encrypted flag failed", "error", err)
		}
		return c.doSave(c.store.WalletFile()+tempFileSuffix, true, true, saveNormal)
	})
}

// SetWalletFile repoints the coordinator at another wallet file. Only
// valid while no wallet is open.
func (c *Coordinator) SetWalletFile(path string) error {
	return c.exec(func() error {
		if c.engine != nil {
			return ErrWalletAlreadyOpen
		}
		return c.store.SetWalletFile(path)
	})
}

// State returns the current lifecycle state.
func (c *Coordinator) State() LifecycleState {
	state := StateClosed
	_ = c.exec(func() error {
		state = c.state
		return nil
	})
	return state
}

// IsOpen reports whether an engine handle exists.
func (c *Coordinator) IsOpen() bool {
	open := false
	_ = c.exec(func() error {
		open = c.engine != nil
		return nil
	})
	return open
}

func (c *Coordinator) Address() (string, error) {
	var address string
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		address, err = c.engine.Address()
		return err
	})
	return address, err
}

func (c *Coordinator) ActualBalance() (uint64, error) {
	var balance uint64
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		balance, err = c.engine.ActualBalance()
		return err
	})
	return balance, err
}

func (c *Coordinator) PendingBalance() (uint64, error) {
	var balance uint64
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		balance, err = c.engine.PendingBalance()
		return err
	})
	return balance, err
}

func (c *Coordinator) TransactionCount() (uint64, error) {
	var count uint64
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		count, err = c.engine.TransactionCount()
		return err
	})
	return count, err
}

func (c *Coordinator) TransferCount() (uint64, error) {
	var count uint64
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		count, err = c.engine.TransferCount()
		return err
	})
	return count, err
}

func (c *Coordinator) Transaction(id walletif.TransactionID) (walletif.Transaction, bool, error) {
	var (
		tx    walletif.Transaction
		found bool
	)
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		tx, found, err = c.engine.Transaction(id)
		return err
	})
	return tx, found, err
}

func (c *Coordinator) Transfer(id walletif.TransferID) (walletif.Transfer, bool, error) {
	var (
		transfer walletif.Transfer
		found    bool
	)
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		transfer, found, err = c.engine.Transfer(id)
		return err
	})
	return transfer, found, err
}

func (c *Coordinator) AccountKeys() (walletif.AccountKeys, error) {
	var keys walletif.AccountKeys
	err := c.exec(func() error {
		if c.engine == nil {
			return ErrWalletNotOpen
		}
		var err error
		keys, err = c.engine.AccountKeys()
		return err
	})
	return keys, err
}

// destroyEngine releases the handle and returns to Closed. Run-loop only.
func (c *Coordinator) destroyEngine() {
	if c.engine == nil {
		return
	}
	c.engine.RemoveObserver(c)
	c.engine.Shutdown()
	c.engine = nil
	c.state = StateClosed
}

// flushPendingTransaction emits the most recent transaction observed
// during synchronization, exactly once. Run-loop only.
func (c *Coordinator) flushPendingTransaction() {
	if c.pendingTx == walletif.InvalidTransactionID {
		return
	}
	c.notifier.publish(Event{Kind: EventTransactionCreated, Transaction: c.pendingTx})
	c.pendingTx = walletif.InvalidTransactionID
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
