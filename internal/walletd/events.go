package walletd

import (
	"github.com/ethereum/go-ethereum/event"

	walletif "github.com/walletgui/walletd/wallet_interfaces"
)

// EventKind discriminates the fixed set of outward notifications the
// coordinator emits. The presentation layer switches on it instead of
// wiring one callback per signal.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventInitCompleted
	EventAddressUpdated
	EventActualBalanceUpdated
	EventPendingBalanceUpdated
	EventTransactionsReload
	EventTransactionCreated
	EventTransactionUpdated
	EventSendCompleted
	EventSaveCompleted
	EventSyncProgress
	EventSyncCompleted
	EventCloseCompleted
	EventPasswordRequired
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventInitCompleted:
		return "init_completed"
	case EventAddressUpdated:
		return "address_updated"
	case EventActualBalanceUpdated:
		return "actual_balance_updated"
	case EventPendingBalanceUpdated:
		return "pending_balance_updated"
	case EventTransactionsReload:
		return "transactions_reload"
	case EventTransactionCreated:
		return "transaction_created"
	case EventTransactionUpdated:
		return "transaction_updated"
	case EventSendCompleted:
		return "send_completed"
	case EventSaveCompleted:
		return "save_completed"
	case EventSyncProgress:
		return "sync_progress"
	case EventSyncCompleted:
		return "sync_completed"
	case EventCloseCompleted:
		return "close_completed"
	case EventPasswordRequired:
		return "password_required"
	default:
		return "unknown"
	}
}

// Event is one outward notification. Only the fields relevant to the Kind
// are populated; ErrorText is pre-resolved so subscribers need no code
// table of their own.
type Event struct {
	Kind         EventKind
	Status       string
	Err          walletif.ErrorCode
	ErrorText    string
	Transaction  walletif.TransactionID
	Current      uint32
	Total        uint32
	Balance      uint64
	Address      string
	WasEncrypted bool
}

// Notifier fans events out to any number of subscribers. Send never blocks
// the coordinator longer than the slowest subscriber channel; buffer
// subscriptions accordingly.
type Notifier struct {
	feed event.Feed
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers ch for all future events. Unsubscribe through the
// returned subscription; the channel is never closed by the notifier.
func (n *Notifier) Subscribe(ch chan<- Event) event.Subscription {
	return n.feed.Subscribe(ch)
}

func (n *Notifier) publish(ev Event) {
	if ev.Err != walletif.Ok && ev.ErrorText == "" {
		ev.ErrorText = ev.Err.Message()
	}
	n.feed.Send(ev)
}
