// Session persistence backends
package store

import (
	"context"
	"time"

	"github.com/pochemuchka/pochemuchka/pkg/models"
)

// Store persists sessions and their message history. Load returns the
// session and its most recent messages in chronological order; a chat never
// seen before yields a fresh default session, not an error.
type Store interface {
	Load(ctx context.Context, chatID string) (*models.Session, []*models.Message, error)

	// Save upserts the session scalars and appends only the new messages,
	// atomically where the backend allows it.
	Save(ctx context.Context, session *models.Session, newMessages []*models.Message) error

	Delete(ctx context.Context, chatID string) error

	// DeleteOlderThan removes sessions not updated within age, with their
	// messages. Returns the number of sessions removed.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)

	Ping(ctx context.Context) error
}
