// services/local_store.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"spinwin/models"
	"spinwin/utils"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordSchemaVersion is written with every record. Records with another
// version read as absent.
const RecordSchemaVersion = 1

// StoreKey addresses one record of a device's key-value store. Build keys
// with Keys only.
type StoreKey struct {
	DeviceID string
	Kind     models.RecordKind
	Day      string
	name     string
}

func (k StoreKey) String() string { return k.name }

// Keys builds the typed keys of one device.
type Keys struct {
	DeviceID string
}

func (k Keys) Session() StoreKey {
	return k.key(models.RecordKindSession, "", "session")
}

// Rewards is the local reward list of one owner (email, else uid).
func (k Keys) Rewards(owner string) StoreKey {
	return k.key(models.RecordKindRewards, "", "rewards", owner)
}

func (k Keys) Quota(userID, restaurantID, day string) StoreKey {
	return k.key(models.RecordKindQuota, day, "quota", userID, restaurantID, day)
}

// GenericQuota is the device-wide copy of the last quota written.
func (k Keys) GenericQuota() StoreKey {
	return k.key(models.RecordKindGenericQuota, "", "spin")
}

func (k Keys) key(kind models.RecordKind, day string, parts ...string) StoreKey {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, fmt.Sprintf("v%d", RecordSchemaVersion), url.PathEscape(k.DeviceID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return StoreKey{
		DeviceID: k.DeviceID,
		Kind:     kind,
		Day:      day,
		name:     strings.Join(escaped, "/"),
	}
}

// KeyValueStore is the device-local persistence the components use.
type KeyValueStore interface {
	Load(ctx context.Context, key StoreKey, out any) (bool, error)
	Save(ctx context.Context, key StoreKey, v any) error
	Remove(ctx context.Context, key StoreKey) error
}

// LocalStore keeps records in a SQL table via gorm. Writes are last-write-wins.
type LocalStore struct {
	DB *gorm.DB
}

func NewLocalStore(db *gorm.DB) *LocalStore {
	return &LocalStore{DB: db}
}

// OpenLocalStore opens the DSN (postgres URL or SQLite DSN) and migrates it.
func OpenLocalStore(dsn string) (*LocalStore, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: utils.GormLogger(os.Stderr)})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if err := db.AutoMigrate(&models.LocalRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}
	return NewLocalStore(db), nil
}

func (s *LocalStore) Load(ctx context.Context, key StoreKey, out any) (bool, error) {
	var rec models.LocalRecord
	if err := s.DB.WithContext(ctx).Where("record_key = ?", key.String()).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if rec.Schema != RecordSchemaVersion {
		return false, fmt.Errorf("%s has schema %d: %w", key, rec.Schema, ErrSchemaMismatch)
	}
	if err := json.Unmarshal([]byte(rec.Payload), out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w: %w", key, ErrCorruptRecord, err)
	}
	return true, nil
}

func (s *LocalStore) Save(ctx context.Context, key StoreKey, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	rec := models.LocalRecord{
		Key:      key.String(),
		DeviceID: key.DeviceID,
		Kind:     key.Kind,
		Schema:   RecordSchemaVersion,
		Day:      key.Day,
		Payload:  string(payload),
	}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "schema", "day", "payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Remove(ctx context.Context, key StoreKey) error {
	if err := s.DB.WithContext(ctx).Where("record_key = ?", key.String()).Delete(&models.LocalRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// PruneQuotasBefore deletes per-day quota records older than day (YYYY-MM-DD).
func (s *LocalStore) PruneQuotasBefore(ctx context.Context, day string) (int64, error) {
	result := s.DB.WithContext(ctx).
		Where("kind = ? AND day < ?", models.RecordKindQuota, day).
		Delete(&models.LocalRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune quotas before %s: %w", day, result.Error)
	}
	return result.RowsAffected, nil
}
