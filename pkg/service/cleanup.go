// Periodic removal of stale sessions
package service

import (
	"context"
	"time"

	"github.com/pochemuchka/pochemuchka/pkg/store"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

const cleanupInterval = time.Hour

// StartCleanup removes sessions idle longer than maxAge, once per hour until
// ctx is cancelled. Runs in its own goroutine.
func StartCleanup(ctx context.Context, st store.Store, maxAge time.Duration) {
	logger := utils.GetLogger().With("component", "cleanup")

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := st.DeleteOlderThan(ctx, maxAge)
				if err != nil {
					logger.Warn("session cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					logger.Info("stale sessions removed", "count", removed, "max_age", maxAge)
				}
			}
		}
	}()
}
