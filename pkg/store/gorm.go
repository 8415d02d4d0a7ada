package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pochemuchka/pochemuchka/pkg/db"
	"github.com/pochemuchka/pochemuchka/pkg/models"
)

// GormStore persists sessions in SQLite through gorm.
type GormStore struct {
	db    *gorm.DB
	limit int
}

// NewGormStore opens (creating if needed) the SQLite database at path and
// migrates the schema. limit bounds how many recent messages Load returns.
func NewGormStore(path string, limit int) (*GormStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}

	if err := gdb.AutoMigrate(&db.Session{}, &db.Message{}); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}

	return &GormStore{db: gdb, limit: limit}, nil
}

func (s *GormStore) Load(ctx context.Context, chatID string) (*models.Session, []*models.Message, error) {
	var session db.Session
	err := s.db.WithContext(ctx).First(&session, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.NewSession(chatID), nil, nil
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "load session")
	}

	// Most recent messages, returned oldest first.
	var recent []*db.Message
	err = s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Limit(s.limit).
		Find(&recent).Error
	if err != nil {
		return nil, nil, errors.Wrap(err, "load messages")
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return &session, recent, nil
}

func (s *GormStore) Save(ctx context.Context, session *models.Session, newMessages []*models.Message) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			UpdateAll: true,
		}).Create(session).Error; err != nil {
			return err
		}
		// Strictly increasing timestamps keep load order stable within a turn.
		now := time.Now()
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
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "save session")
}

func (s *GormStore) Delete(ctx context.Context, chatID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&db.Message{}, "chat_id = ?", chatID).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Session{}, "chat_id = ?", chatID).Error
	})
	return errors.Wrap(err, "delete session")
}

func (s *GormStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []string
		if err := tx.Model(&db.Session{}).
			Where("updated_at < ?", cutoff).
			Pluck("chat_id", &stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		if err := tx.Delete(&db.Message{}, "chat_id IN ?", stale).Error; err != nil {
			return err
		}
		res := tx.Delete(&db.Session{}, "chat_id IN ?", stale)
		removed = res.RowsAffected
		return res.Error
	})
	return removed, errors.Wrap(err, "cleanup old sessions")
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
