package walletd

import (
	"testing"
	"time"

	walletif "github.com/walletgui/walletd/wallet_interfaces"
)

func TestNotifierFansOut(t *testing.T) {
	n := NewNotifier()
	a := make(chan Event, 1)
	b := make(chan Event, 1)
	subA := n.Subscribe(a)
	defer subA.Unsubscribe()
	subB := n.Subscribe(b)
	defer subB.Unsubscribe()

	n.publish(Event{Kind: EventSyncCompleted})

	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Kind != EventSyncCompleted {
				t.Fatalf("got %s", ev.Kind)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestNotifierUnsubscribedChannelStops(t *testing.T) {
	n := NewNotifier()
	ch := make(chan Event, 1)
	sub := n.Subscribe(ch)
	sub.Unsubscribe()

	n.publish(Event{Kind: EventSyncCompleted})
	select {
	case ev := <-ch:
		t.Fatalf("received %s after unsubscribe", ev.Kind)
	case <-time.After(25 * time.Millisecond):
	}
}

func TestPublishResolvesErrorText(t *testing.T) {
	n := NewNotifier()
	ch := make(chan Event, 1)
	sub := n.Subscribe(ch)
	defer sub.Unsubscribe()

	n.publish(Event{Kind: EventInitCompleted, Err: walletif.WrongPassword})
	ev := <-ch
	if ev.ErrorText != walletif.WrongPassword.Message() {
		t.Fatalf("error text %q", ev.ErrorText)
	}

	n.publish(Event{Kind: EventInitCompleted, Err: walletif.Ok})
	ev = <-ch
	if ev.ErrorText != "" {
		t.Fatalf("ok event carries error text %q", ev.ErrorText)
	}
}

func TestEventKindStrings(t *testing.T) {
	kinds := []EventKind{
		EventStateChanged, EventInitCompleted, EventAddressUpdated,
		EventActualBalanceUpdated, EventPendingBalanceUpdated,
		EventTransactionsReload, EventTransactionCreated,
		EventTransactionUpdated, EventSendCompleted, EventSaveCompleted,
		EventSyncProgress, EventSyncCompleted, EventCloseCompleted,
		EventPasswordRequired,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		if s == "" || s == "unknown" {
			t.Errorf("kind %d has no name", k)
		}
		if seen[s] {
			t.Errorf("duplicate kind name %q", s)
		}
		seen[s] = true
	}
	if EventKind(999).String() != "unknown" {
		t.Error("out-of-range kind should render as unknown")
	}
}
