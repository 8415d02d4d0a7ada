package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pochemuchka/pochemuchka/pkg/db"
	"github.com/pochemuchka/pochemuchka/pkg/models"
)

type memoryEntry struct {
	session  models.Session
	messages []models.Message
}

// MemoryStore keeps sessions in a process-local map. It backs the memory
// storage backend and the degradation fallback; it never fails.
type MemoryStore struct {
	mu    sync.RWMutex
	limit int
	chats map[string]*memoryEntry
}

func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		limit: limit,
		chats: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Load(ctx context.Context, chatID string) (*models.Session, []*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.chats[chatID]
	if !ok {
		return db.NewSession(chatID), nil, nil
	}

	session := entry.session
	start := 0
	if len(entry.messages) > s.limit {
		start = len(entry.messages) - s.limit
	}
	messages := make([]*models.Message, 0, len(entry.messages)-start)
	for i := start; i < len(entry.messages); i++ {
		m := entry.messages[i]
		messages = append(messages, &m)
	}
	return &session, messages, nil
}

func (s *MemoryStore) Save(ctx context.Context, session *models.Session, newMessages []*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	entry, ok := s.chats[session.ChatID]
	if !ok {
		entry = &memoryEntry{}
		s.chats[session.ChatID] = entry
	}
	entry.session = *session
	for i, m := range newMessages {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.ChatID == "" {
			m.ChatID = session.ChatID
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		entry.messages = append(entry.messages, *m)
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	return nil
}

func (s *MemoryStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-age)
	var removed int64
	for chatID, entry := range s.chats {
		if entry.session.UpdatedAt.Before(cutoff) {
			delete(s.chats, chatID)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
