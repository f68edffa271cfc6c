package models

import "time"

// RecordKind groups local records by what they hold.
type RecordKind string

const (
	RecordKindSession      RecordKind = "session"
	RecordKindRewards      RecordKind = "rewards"
	RecordKindQuota        RecordKind = "quota"
	RecordKindGenericQuota RecordKind = "generic_quota"
)

// LocalRecord is one schema-versioned entry of the device key-value store.
type LocalRecord struct {
	Key      string     `gorm:"column:record_key;primaryKey;size:255" json:"key"`
	DeviceID string     `gorm:"index;not null" json:"device_id"`
	Kind     RecordKind `gorm:"index;not null" json:"kind"`
	Schema   int        `gorm:"not null" json:"schema"`
	// Day is set for quota records so old days can be pruned.
	Day     string `gorm:"index" json:"day,omitempty"`
	Payload string `gorm:"type:text;not null" json:"payload"`
	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
