package walletd

import (
	"fmt"
	"log/slog"

	walletif "github.com/walletgui/walletd/wallet_interfaces"
)

// Coordinator implements walletif.Observer. The engine invokes these on
// its own goroutine; each method does only channel-lock hand-off work
// inline (close, commit, unlock) and marshals everything else onto the
// run loop. Doing the hand-off inline is what lets a queued task block on
// the channel lock without deadlocking the loop.
var _ walletif.Observer = (*Coordinator)(nil)

func (c *Coordinator) OnInitCompleted(code walletif.ErrorCode) {
	// A load leaves its read channel open until init completes.
	c.channel.closeIfOpen()
	c.post(func() { c.handleInitCompleted(code) })
}

func (c *Coordinator) handleInitCompleted(code walletif.ErrorCode) {
	c.notifier.publish(Event{Kind: EventInitCompleted, Err: code})

	switch code {
	case walletif.Ok:
		// Teardown drains this queue while holding the channel lock; a
		// follow-up save here would block on that lock forever.
		if c.engine == nil || c.state == StateClosing {
			return
		}
		c.state = StateReady
		if balance, err := c.engine.ActualBalance(); err == nil {
			c.notifier.publish(Event{Kind: EventActualBalanceUpdated, Balance: balance})
		}
		if balance, err := c.engine.PendingBalance(); err == nil {
			c.notifier.publish(Event{Kind: EventPendingBalanceUpdated, Balance: balance})
		}
		if address, err := c.engine.Address(); err == nil {
			c.notifier.publish(Event{Kind: EventAddressUpdated, Address: address})
		}
		c.notifier.publish(Event{Kind: EventTransactionsReload})
		c.emitState("Ready")
		c.scheduleStatusRefresh(statusRefreshDelay)
		if !fileExists(c.store.WalletFile()) {
			// Fresh creation: persist it right away so the wallet
			// survives a crash before the first explicit save.
			if err := c.doSave(c.store.WalletFile()+tempFileSuffix, true, true, saveNormal); err != nil {
				slog.Warn("initial save of fresh wallet failed", "error", err)
			}
		}

	case walletif.WrongPassword:
		c.notifier.publish(Event{Kind: EventPasswordRequired, WasEncrypted: c.store.IsEncrypted()})
		if err := c.store.SetEncrypted(true); err != nil {
			slog.Warn("persisting encrypted flag failed", "error", err)
		}
		c.destroyEngine()

	default:
		slog.Warn("wallet initialization failed", "error", code.Message())
		c.destroyEngine()
	}
}

func (c *Coordinator) OnSaveCompleted(code walletif.ErrorCode) {
	if !c.channel.isOpen() {
		// Completion without a channel: nothing to close or commit.
		c.post(func() {
			c.notifier.publish(Event{Kind: EventSaveCompleted, Err: code})
		})
		return
	}

	intent := c.saveIntent
	temp := c.saveTemp
	c.saveIntent = saveNone
	c.saveTemp = ""

	committed := false
	var commitErr error
	if code == walletif.Ok && intent == saveNormal {
		// Channel-close must precede the rename so the temp file is
		// complete and flushed when it replaces the real one.
		c.channel.close()
		commitErr = commitFile(temp, c.store.WalletFile())
		committed = commitErr == nil
	} else {
		c.channel.close()
	}

	c.post(func() { c.handleSaveCompleted(code, committed, commitErr) })
}

func (c *Coordinator) handleSaveCompleted(code walletif.ErrorCode, committed bool, commitErr error) {
	if commitErr != nil {
		slog.Error("wallet file commit failed", "error", commitErr)
	}
	if c.state == StateSaving {
		c.state = StateReady
	}
	if committed && c.state == StateReady {
		c.emitState("Ready")
		c.scheduleStatusRefresh(statusRefreshDelay)
	}
	ev := Event{Kind: EventSaveCompleted, Err: code}
	if commitErr != nil {
		// The engine serialized fine but the bytes never reached the
		// wallet file; subscribers must not see a successful save.
		ev.Err = walletif.InternalError
		ev.ErrorText = commitErr.Error()
	}
	c.notifier.publish(ev)
}

func (c *Coordinator) OnSynchronizationProgressUpdated(current, total uint32) {
	c.post(func() {
		c.synchronized = false
		// Progress can arrive per block; the status string is rate
		// limited, the progress event itself is not.
		if c.syncStatus.Allow() {
			c.emitState(fmt.Sprintf("Synchronizing %d/%d", current, total))
		}
		c.notifier.publish(Event{Kind: EventSyncProgress, Current: current, Total: total})
		c.txNotifier.arm()
	})
}

func (c *Coordinator) OnSynchronizationCompleted(code walletif.ErrorCode) {
	if code != walletif.Ok {
		return
	}
	c.post(func() {
		c.synchronized = true
		c.refreshStatus()
		c.notifier.publish(Event{Kind: EventSyncCompleted})
		c.txNotifier.stop()
		c.flushPendingTransaction()
	})
}

func (c *Coordinator) OnActualBalanceUpdated(balance uint64) {
	c.post(func() {
		c.notifier.publish(Event{Kind: EventActualBalanceUpdated, Balance: balance})
	})
}

func (c *Coordinator) OnPendingBalanceUpdated(balance uint64) {
	c.post(func() {
		c.notifier.publish(Event{Kind: EventPendingBalanceUpdated, Balance: balance})
	})
}

func (c *Coordinator) OnExternalTransactionCreated(id walletif.TransactionID) {
	c.post(func() {
		if !c.synchronized {
			// Only the most recent transaction is kept; the flush
			// emits it once when synchronization settles.
			c.pendingTx = id
			return
		}
		c.notifier.publish(Event{Kind: EventTransactionCreated, Transaction: id})
	})
}

func (c *Coordinator) OnTransactionUpdated(id walletif.TransactionID) {
	c.post(func() {
		c.notifier.publish(Event{Kind: EventTransactionUpdated, Transaction: id})
	})
}

func (c *Coordinator) OnSendTransactionCompleted(id walletif.TransactionID, code walletif.ErrorCode) {
	// Release the lock taken at send time before anything else; a queued
	// save may already be waiting on it.
	c.channel.unlock()
	c.post(func() { c.handleSendCompleted(id, code) })
}

func (c *Coordinator) handleSendCompleted(id walletif.TransactionID, code walletif.ErrorCode) {
	if c.state == StateSending {
		c.state = StateReady
	}
	c.notifier.publish(Event{Kind: EventSendCompleted, Transaction: id, Err: code})
	if c.state == StateClosing {
		// Drained during teardown, which holds the channel lock and has
		// already flushed: starting another save here would deadlock.
		return
	}
	c.scheduleStatusRefresh(statusRefreshDelay)

	if code != walletif.Ok || c.engine == nil {
		return
	}
	tx, found, err := c.engine.Transaction(id)
	if err != nil || !found {
		return
	}
	if tx.TransferCount == 0 {
		return
	}
	c.notifier.publish(Event{Kind: EventTransactionCreated, Transaction: id})
	if err := c.doSave(c.store.WalletFile()+tempFileSuffix, true, true, saveNormal); err != nil {
		slog.Warn("save after send failed", "error", err)
	}
}
