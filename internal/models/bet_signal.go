package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BetSignal is one "place bet" decision emitted by the betting executor.
// Immutable once created; the realized outcome is filled in after round end.
type BetSignal struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID string `gorm:"type:varchar(50);not null;index" json:"user_id"`
	RoomID string `gorm:"type:varchar(100);not null;index" json:"room_id"`

	Side       string          `gorm:"type:varchar(10);not null" json:"side"`
	Stake      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"stake"`
	Strategy   string          `gorm:"type:varchar(50);not null" json:"strategy"`
	Confidence float64         `gorm:"not null" json:"confidence"`
	Algorithm  string          `gorm:"type:varchar(50);not null" json:"predicted_by"`

	Outcome *string        `gorm:"type:varchar(10)" json:"outcome,omitempty"`
	Won     *bool          `json:"won,omitempty"`
	Payload datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"timestamp"`
}

func (BetSignal) TableName() string {
	return "bet_signals"
}
