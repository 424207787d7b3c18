package domain

import "time"

// KVEntry is one key of the SQL-backed key-value store. A nil ExpiresAt means
// the key never expires; otherwise readers must treat rows with
// ExpiresAt <= now as absent until the purge sweep removes them.
type KVEntry struct {
	Key       string     `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     []byte     `gorm:"type:BLOB NOT NULL"`
	ExpiresAt *time.Time `gorm:"type:DATETIME;index"`
	UpdatedAt time.Time  `gorm:"type:DATETIME NOT NULL"`
}

// TableName implements the GORM tabler interface.
func (KVEntry) TableName() string { return "kv_entries" }
