package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-enrich-backend/internal/domain"
)

// SQLStore is a Store over a single GORM table. Set is one upsert statement,
// so a reader sees the old row or the new row. Expired rows are invisible to
// Get and are removed by PurgeExpired.
type SQLStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewSQLStore migrates the schema and returns a store using the wall clock.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate kv_entries: %w", err)
	}
	return &SQLStore{DB: db, Now: time.Now}, nil
}

func (s *SQLStore) now() time.Time { return s.Now().UTC() }

// Set upserts key with value, replacing value and expiry together.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	row := domain.KVEntry{Key: key, Value: value, UpdatedAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		row.ExpiresAt = &exp
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("sql set %s: %w", key, err)
	}
	return nil
}

// Get returns the live value under key or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row domain.KVEntry
	err := s.DB.WithContext(ctx).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, s.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sql get %s: %w", key, err)
	}
	return row.Value, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := s.DB.WithContext(ctx).Where("key = ?", key).Delete(&domain.KVEntry{}).Error; err != nil {
		return fmt.Errorf("sql delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the underlying connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PurgeExpired deletes rows whose expiry has passed and reports how many.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&domain.KVEntry{})
	return res.RowsAffected, res.Error
}

// RunPurger calls PurgeExpired every interval until ctx is done.
func (s *SQLStore) RunPurger(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("kv purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("kv purge")
			}
		}
	}
}
