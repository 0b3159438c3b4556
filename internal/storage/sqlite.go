// Package storage persists the small amount of durable state the core
// keeps across restarts: user-assigned device tags/notes (the
// kismetdb-equivalent of Kismet's device notes column) and the
// zstd-compressed frame archive (archive.go). Device tracking itself is
// in-memory (internal/devicetracker); this package is not a cache of
// live state, only of what a user explicitly annotated.
package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// DeviceTagModel is the GORM row for a user-assigned device annotation,
// keyed by the same "mac/phy" string domain.DeviceKey.String() produces.
type DeviceTagModel struct {
	Key       string `gorm:"primaryKey"`
	Tag       string
	Notes     string
	UpdatedAt time.Time
}

// Store wraps a GORM/SQLite connection scoped to device tag persistence.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if absent) the sqlite database at path and
// migrates the tag table. Grounded on the teacher's SQLiteAdapter:
// gorm.Open + otel tracing plugin + auto migrate.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("storage: installing otel tracing plugin: %w", err)
	}
	if err := db.AutoMigrate(&DeviceTagModel{}, &VendorModel{}); err != nil {
		return nil, fmt.Errorf("storage: migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SetTag upserts a tag/notes pair for the device key.
func (s *Store) SetTag(ctx context.Context, key, tag, notes string) error {
	row := DeviceTagModel{Key: key, Tag: tag, Notes: notes, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Save(&row).Error
}

// GetTag looks up a previously stored tag/notes pair.
func (s *Store) GetTag(ctx context.Context, key string) (tag, notes string, ok bool) {
	var row DeviceTagModel
	if err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return "", "", false
	}
	return row.Tag, row.Notes, true
}

// AllTags returns every stored tag, keyed by device key string.
func (s *Store) AllTags(ctx context.Context) (map[string]DeviceTagModel, error) {
	var rows []DeviceTagModel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]DeviceTagModel, len(rows))
	for _, r := range rows {
		out[r.Key] = r
	}
	return out, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
