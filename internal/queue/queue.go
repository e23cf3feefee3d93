// Package queue provides durable, order-preserving storage for mutations
// made while the backend was unreachable. Records are owned exclusively by
// this package; the sync engine is the only caller that removes them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrMutationNotFound is returned when a mutation id has no record.
var ErrMutationNotFound = errors.New("queued mutation not found")

// Mutation is one not-yet-confirmed write awaiting replay against the
// remote API. Synced stays false until remote acceptance is confirmed.
type Mutation struct {
	ID        string `gorm:"primaryKey"`
	Method    string `gorm:"not null"`
	Path      string `gorm:"not null"`
	Payload   []byte
	AuthToken string
	Synced    bool `gorm:"index;not null;default:false"`
	CreatedAt time.Time
}

// Store persists mutations in SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the queue database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing gorm DB and migrates the mutation schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Mutation{}); err != nil {
		return nil, fmt.Errorf("migrate queue schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Enqueue stores a mutation with synced=false. A locally generated id and
// creation timestamp are assigned if absent.
func (s *Store) Enqueue(ctx context.Context, m *Mutation) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Synced = false
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("enqueue mutation: %w", err)
	}
	return nil
}

// ListUnsynced returns all unsynced mutations oldest first, preserving
// causal replay order.
func (s *Store) ListUnsynced(ctx context.Context) ([]Mutation, error) {
	var out []Mutation
	err := s.db.WithContext(ctx).
		Where("synced = ?", false).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list unsynced mutations: %w", err)
	}
	return out, nil
}

// MarkSynced deletes the record for id. Once remote acceptance is
// confirmed the local copy's job is done; there is no synced archive.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&Mutation{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("mark mutation %s synced: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMutationNotFound
	}
	return nil
}

// Count returns the number of unsynced mutations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&Mutation{}).
		Where("synced = ?", false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unsynced mutations: %w", err)
	}
	return n, nil
}
