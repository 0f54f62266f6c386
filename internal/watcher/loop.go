package watcher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run polls until ctx is cancelled. A failed poll is reported with
// suppression and retried after the retry delay; it never ends the loop.
func (w *Watcher) Run(ctx context.Context) {
	for {
		delay := w.config.PollInterval()
		if err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			delay = w.config.RetryDelay()
			w.journal.Limited("loop_error", "Poll failed, waiting for connection",
				zap.Error(err), zap.Duration("retry_in", delay))
		}

		select {
		case <-ctx.Done():
			w.log.Info("Main loop stopping")
			return
		case <-time.After(delay):
		}
	}
}
