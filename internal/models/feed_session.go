package models

import "time"

// FeedSession holds the per-user credentials needed to open the upstream
// lobby websocket. The session token is opaque to us and expires out-of-band;
// when the handshake starts failing with a rejection the operator must paste
// a fresh one.
type FeedSession struct {
	UserID        string `gorm:"type:varchar(50);primaryKey" json:"user_id"`
	// Stored as an aes-gcm envelope when a token encryption key is set,
	// so the column is text rather than a bounded varchar.
	SessionToken  string `gorm:"type:text;not null" json:"session_id"`
	BareSessionID string `gorm:"type:varchar(100);not null" json:"bare_session_id"`
	Instance      string `gorm:"type:varchar(50);not null" json:"instance"`
	ClientVersion string `gorm:"type:varchar(50);not null" json:"client_version"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (FeedSession) TableName() string {
	return "feed_sessions"
}
