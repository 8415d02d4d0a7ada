package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pochemuchka/pochemuchka/pkg/models"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

// Degradable wraps a persistent store with an in-process fallback so that
// storage failures never surface to a turn.
//
// Availability flips to false after threshold consecutive failures and back
// to true after a single success. While degraded, reads and writes hit the
// fallback map; every Save still probes the persistent store, and the first
// one that succeeds persists the current state wholesale (last writer wins —
// messages accumulated only in the fallback during the outage stay
// unpersisted, an accepted loss window).
type Degradable struct {
	inner    Store
	fallback *MemoryStore
	logger   *slog.Logger

	threshold int

	mu       sync.Mutex
	failures int
	degraded bool
}

// NewDegradable wraps inner. threshold is the number of consecutive failures
// after which the store reports unavailable; values below 1 are raised to 1.
func NewDegradable(inner Store, fallback *MemoryStore, threshold int) *Degradable {
	if threshold < 1 {
		threshold = 1
	}
	return &Degradable{
		inner:     inner,
		fallback:  fallback,
		logger:    utils.GetLogger().With("component", "store"),
		threshold: threshold,
	}
}

// Available reports whether the persistent store is currently considered up.
func (d *Degradable) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.degraded
}

func (d *Degradable) recordFailure(op string, err error) {
	d.mu.Lock()
	d.failures++
	flipped := !d.degraded && d.failures >= d.threshold
	if flipped {
		d.degraded = true
	}
	d.mu.Unlock()

	if flipped {
		d.logger.Error("persistent store marked unavailable", "op", op, "error", err)
	} else {
		d.logger.Warn("persistent store operation failed", "op", op, "error", err)
	}
}

func (d *Degradable) recordSuccess() {
	d.mu.Lock()
	recovered := d.degraded
	d.failures = 0
	d.degraded = false
	d.mu.Unlock()

	if recovered {
		d.logger.Info("persistent store recovered")
	}
}

// Load never fails: a degraded or failing persistent store yields the
// fallback state (a default session for unseen chats).
func (d *Degradable) Load(ctx context.Context, chatID string) (*models.Session, []*models.Message, error) {
	if d.Available() {
		session, messages, err := d.inner.Load(ctx, chatID)
		if err == nil {
			d.recordSuccess()
			// Mirror so a later outage starts from the last known state.
			d.mirror(ctx, session, messages)
			return session, messages, nil
		}
		d.recordFailure("load", err)
	}
	return d.fallback.Load(ctx, chatID)
}

// mirror refreshes the fallback copy of a chat after a successful read.
func (d *Degradable) mirror(ctx context.Context, session *models.Session, messages []*models.Message) {
	_ = d.fallback.Delete(ctx, session.ChatID)
	s := *session
	copied := make([]*models.Message, len(messages))
	for i, m := range messages {
		c := *m
		copied[i] = &c
	}
	_ = d.fallback.Save(ctx, &s, copied)
}

// Save always records the state in the fallback and probes the persistent
// store, so recovery happens on the first Save after the backend returns.
// The error is absorbed: callers cannot fail a turn on storage.
func (d *Degradable) Save(ctx context.Context, session *models.Session, newMessages []*models.Message) error {
	if err := d.fallback.Save(ctx, session, newMessages); err != nil {
		return err
	}
	if err := d.inner.Save(ctx, session, newMessages); err != nil {
		d.recordFailure("save", err)
		return nil
	}
	d.recordSuccess()
	return nil
}

func (d *Degradable) Delete(ctx context.Context, chatID string) error {
	_ = d.fallback.Delete(ctx, chatID)
	if err := d.inner.Delete(ctx, chatID); err != nil {
		d.recordFailure("delete", err)
		return err
	}
	d.recordSuccess()
	return nil
}

func (d *Degradable) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	_, _ = d.fallback.DeleteOlderThan(ctx, age)
	removed, err := d.inner.DeleteOlderThan(ctx, age)
	if err != nil {
		d.recordFailure("cleanup", err)
		return removed, err
	}
	d.recordSuccess()
	return removed, nil
}

func (d *Degradable) Ping(ctx context.Context) error {
	return d.inner.Ping(ctx)
}
