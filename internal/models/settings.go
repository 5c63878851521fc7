package models

import "time"

// StreakSettings are the per-user thresholds for streak qualification.
type StreakSettings struct {
	UserID       string `gorm:"type:varchar(50);primaryKey" json:"user_id"`
	PlayerStreak int    `gorm:"not null;default:3" json:"player_streak"`
	BankerStreak int    `gorm:"not null;default:3" json:"banker_streak"`
	MinResults   int    `gorm:"not null;default:10" json:"min_results"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (StreakSettings) TableName() string {
	return "streak_settings"
}

// PredictionSettings select the prediction algorithm per user.
type PredictionSettings struct {
	UserID              string  `gorm:"type:varchar(50);primaryKey" json:"user_id"`
	Algorithm           string  `gorm:"type:varchar(50);not null;default:choice_pick" json:"algorithm"`
	SampleSize          int     `gorm:"not null;default:15" json:"sample_size"`
	ConfidenceThreshold float64 `gorm:"not null;default:0.6" json:"confidence_threshold"`
	LossLimit           int     `gorm:"not null;default:3" json:"loss_limit"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (PredictionSettings) TableName() string {
	return "prediction_settings"
}

// RoomMapping maps an upstream table id to its display name for one user.
type RoomMapping struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID      string `gorm:"type:varchar(50);not null;uniqueIndex:idx_room_mappings_user_room" json:"user_id"`
	RoomID      string `gorm:"type:varchar(100);not null;uniqueIndex:idx_room_mappings_user_room" json:"room_id"`
	DisplayName string `gorm:"type:varchar(200);not null" json:"display_name"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (RoomMapping) TableName() string {
	return "room_mappings"
}

// FilterKeyword is one entry of a user's table-name ingestion filter.
type FilterKeyword struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID  string `gorm:"type:varchar(50);not null;uniqueIndex:idx_filter_keywords_user_kw" json:"user_id"`
	Keyword string `gorm:"type:varchar(100);not null;uniqueIndex:idx_filter_keywords_user_kw" json:"keyword"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (FilterKeyword) TableName() string {
	return "filter_keywords"
}
