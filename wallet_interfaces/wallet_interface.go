// Package walletif declares the contract between the wallet coordination
// layer and the external wallet engine. The engine performs all cryptography
// and network synchronization; walletd only sequences it against the wallet
// file on disk.
package walletif

import (
	"context"
	"io"
	"time"
)

// TransactionID identifies a transaction inside the engine's ledger.
type TransactionID uint64

// TransferID identifies a single transfer within a transaction.
type TransferID uint64

// InvalidTransactionID marks "no transaction". The engine never issues it.
const InvalidTransactionID = TransactionID(^uint64(0))

// Transfer is one destination of an outgoing transaction.
type Transfer struct {
	Address string
	Amount  uint64
}

// Transaction is the engine's view of a ledger entry.
type Transaction struct {
	ID            TransactionID
	TransferCount int
	Amount        int64
	Fee           uint64
	PaymentID     []byte
	Timestamp     time.Time
}

// AccountKeys is the opaque key material of a wallet account.
type AccountKeys struct {
	SpendPublicKey []byte
	SpendSecretKey []byte
	ViewPublicKey  []byte
	ViewSecretKey  []byte
}

// Observer receives completion callbacks from the engine. Callbacks may
// arrive on any goroutine; within a single operation they are delivered in
// FIFO order. Implementations must not call back into the engine from
// inside a callback.
type Observer interface {
	OnInitCompleted(code ErrorCode)
	OnSaveCompleted(code ErrorCode)
	OnSynchronizationProgressUpdated(current, total uint32)
	OnSynchronizationCompleted(code ErrorCode)
	OnActualBalanceUpdated(balance uint64)
	OnPendingBalanceUpdated(balance uint64)
	OnExternalTransactionCreated(id TransactionID)
	OnTransactionUpdated(id TransactionID)
	OnSendTransactionCompleted(id TransactionID, code ErrorCode)
}

// Engine is one live wallet instance. Init*, Save and SendTransaction are
// asynchronous: a nil return means the operation was accepted and its
// outcome arrives via the matching Observer callback. A non-nil return
// means the operation never started.
//
// The reader/writer handed to InitAndLoad and Save stays valid until the
// matching completion callback has returned; the coordinator owns it.
type Engine interface {
	InitAndLoad(source io.Reader, password string) error
	InitAndGenerate(password string) error
	InitWithKeys(keys AccountKeys, password string) error

	Save(destination io.Writer, details, cache bool) error
	SendTransaction(transfers []Transfer, fee uint64, paymentID []byte, mixin uint64) error
	ChangePassword(oldPassword, newPassword string) ErrorCode

	Address() (string, error)
	ActualBalance() (uint64, error)
	PendingBalance() (uint64, error)
	TransactionCount() (uint64, error)
	TransferCount() (uint64, error)
	Transaction(id TransactionID) (Transaction, bool, error)
	Transfer(id TransferID) (Transfer, bool, error)
	AccountKeys() (AccountKeys, error)

	AddObserver(o Observer)
	RemoveObserver(o Observer)

	// Shutdown releases the engine instance. No Observer callback fires
	// after Shutdown returns, and no other method may be called afterwards.
	Shutdown()
}

// Node creates engine instances and converts user-facing transaction
// parameters into engine form.
type Node interface {
	CreateWallet() Engine
	ConvertPaymentID(paymentID string) ([]byte, error)
}

// ChainSource reports the local node's view of the chain tip. It backs the
// synchronized status line only and is never correctness-affecting.
type ChainSource interface {
	LastBlockHeight(ctx context.Context) (uint64, error)
	LastBlockTime(ctx context.Context) (time.Time, error)
}

// LegacyKeyImporter converts an old-format key file into the engine's
// native encrypted wallet format, writing the result to destination.
// A wrong password is reported as WrongPassword.
type LegacyKeyImporter interface {
	ImportKeys(sourcePath, password string, destination io.Writer) error
}
