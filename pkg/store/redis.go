package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/pochemuchka/pochemuchka/pkg/db"
	"github.com/pochemuchka/pochemuchka/pkg/models"
)

const (
	sessionKeyPrefix = "session:"
	messageKeyPrefix = "messages:"

	// Hard cap on the stored history list; Load truncates further.
	redisHistoryCap = 200
)

// RedisStore persists sessions in Redis: session JSON under session:<id>,
// message JSON list under messages:<id>.
type RedisStore struct {
	client *redis.Client
	limit  int
}

func NewRedisStore(addr string, dbNum int, limit int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbNum,
	})
	return &RedisStore{client: client, limit: limit}
}

func (s *RedisStore) Load(ctx context.Context, chatID string) (*models.Session, []*models.Message, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+chatID).Bytes()
	if errors.Is(err, redis.Nil) {
		return db.NewSession(chatID), nil, nil
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "load session")
	}

	var session db.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, nil, errors.Wrap(err, "decode session")
	}

	items, err := s.client.LRange(ctx, messageKeyPrefix+chatID, int64(-s.limit), -1).Result()
	if err != nil {
		return nil, nil, errors.Wrap(err, "load messages")
	}
	messages := make([]*models.Message, 0, len(items))
	for _, item := range items {
		var m db.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		messages = append(messages, &m)
	}

	return &session, messages, nil
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session, newMessages []*models.Message) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ChatID, raw, 0)
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
		encoded, err := json.Marshal(m)
		if err != nil {
			return errors.Wrap(err, "encode message")
		}
		pipe.RPush(ctx, messageKeyPrefix+session.ChatID, encoded)
	}
	pipe.LTrim(ctx, messageKeyPrefix+session.ChatID, -redisHistoryCap, -1)

	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "save session")
}

func (s *RedisStore) Delete(ctx context.Context, chatID string) error {
	err := s.client.Del(ctx, sessionKeyPrefix+chatID, messageKeyPrefix+chatID).Err()
	return errors.Wrap(err, "delete session")
}

func (s *RedisStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	var removed int64

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var session db.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			continue
		}
		if session.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, session.ChatID); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, errors.Wrap(err, "scan sessions")
	}
	return removed, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
