package models

import (
	"time"

	"gorm.io/datatypes"
)

// RawFeedEvent captures inbound feed frames for diagnostics. Pruned by cron.
type RawFeedEvent struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	UserID     string         `gorm:"type:varchar(50);not null;index"`
	EventType  string         `gorm:"type:varchar(80);not null;index"`
	ReceivedAt time.Time      `gorm:"type:timestamptz;not null;index"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
}

func (RawFeedEvent) TableName() string {
	return "raw_feed_events"
}
