package walletd

import "time"

// txNotifier paces "transaction created" notifications while the wallet is
// still synchronizing: a fixed-interval ticker posts a flush onto the
// coordinator queue, and the flush emits at most the single most recent
// pending transaction. Armed on the first sync-progress callback, stopped
// (with one forced flush) when synchronization completes.
//
// arm and stop must only be called from the coordinator run loop.
type txNotifier struct {
	interval time.Duration
	post     func(func())
	flush    func()

	running bool
	quit    chan struct{}
}

func newTxNotifier(interval time.Duration, post func(func()), flush func()) *txNotifier {
	return &txNotifier{
		interval: interval,
		post:     post,
		flush:    flush,
	}
}

func (n *txNotifier) arm() {
	if n.running {
		return
	}
	n.running = true
	n.quit = make(chan struct{})

	quit := n.quit
	go func() {
		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n.post(n.flush)
			case <-quit:
				return
			}
		}
	}()
}

func (n *txNotifier) stop() {
	if !n.running {
		return
	}
	close(n.quit)
	n.running = false
}
