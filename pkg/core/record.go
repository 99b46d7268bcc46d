package core

import (
	"time"
)

// ExecutionRecord is one firing as kept by the history listener.
type ExecutionRecord struct {
	ID             string        `gorm:"primaryKey;size:36"`
	FireInstanceID string        `gorm:"index;size:36"`
	JobKey         string        `gorm:"index;size:511;not null"`
	TriggerName    string        `gorm:"size:255"`
	State          FireState     `gorm:"index;size:20;not null"`
	Result         []byte        `gorm:"type:bytes"` // JSON-encoded return value
	Error          string        `gorm:"type:text"`
	StartedAt      time.Time     `gorm:"index"`
	Duration       time.Duration `gorm:"default:0"`
	CreatedAt      time.Time     `gorm:"autoCreateTime"`
}
