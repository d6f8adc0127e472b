package walletd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	// statusRefreshDelay spaces the cosmetic status update after init,
	// save and send completions.
	statusRefreshDelay = 5 * time.Second

	// blockAgeWarning is how stale the chain tip may get before the
	// status line starts warning.
	blockAgeWarning = time.Hour

	statusQueryTimeout = 15 * time.Second

	// Sync progress callbacks can arrive per block; cap how often they
	// turn into status strings.
	syncStatusRate  = rate.Limit(4)
	syncStatusBurst = 8
)

const statusTimeLayout = "02.01.2006, 15:04:05"

// refreshStatus queries the chain tip off-loop and emits the synchronized
// status line, then re-arms the periodic refresh. Run-loop only.
func (c *Coordinator) refreshStatus() {
	if c.engine == nil || c.chain == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusQueryTimeout)
		defer cancel()
		height, heightErr := c.chain.LastBlockHeight(ctx)
		blockTime, timeErr := c.chain.LastBlockTime(ctx)

		c.post(func() {
			if c.engine == nil {
				return
			}
			if heightErr != nil || timeErr != nil {
				slog.Warn("chain status query failed", "height_error", heightErr, "time_error", timeErr)
			} else {
				c.emitState(StatusLine(height, blockTime, time.Now().UTC()))
			}
			c.armStatusTimer()
		})
	}()
}

// armStatusTimer (re)starts the single periodic refresh timer, so repeated
// delayed refreshes collapse into one chain instead of stacking.
func (c *Coordinator) armStatusTimer() {
	interval := time.Duration(c.store.Get().Status.RefreshSeconds) * time.Second
	if c.statusTimer == nil {
		c.statusTimer = time.AfterFunc(interval, func() { c.post(c.refreshStatus) })
		return
	}
	c.statusTimer.Reset(interval)
}

func (c *Coordinator) scheduleStatusRefresh(delay time.Duration) {
	time.AfterFunc(delay, func() { c.post(c.refreshStatus) })
}

// StatusLine renders the synchronized wallet status, warning when the last
// block is older than an hour.
func StatusLine(height uint64, blockTime, now time.Time) string {
	warning := ""
	if age := now.Sub(blockTime); age >= blockAgeWarning {
		warning = fmt.Sprintf("  Warning: last block was received %d hours %d minutes ago",
			int(age.Hours()), int(age.Minutes())%60)
	}
	return fmt.Sprintf("Wallet synchronized. Height: %d  |  Time (UTC): %s%s",
		height, blockTime.UTC().Format(statusTimeLayout), warning)
}
