package db

import (
	"lobbywatch/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.User{},
		&models.FeedSession{},
		&models.StreakSettings{},
		&models.PredictionSettings{},
		&models.RoomMapping{},
		&models.FilterKeyword{},
		&models.BetSignal{},
		&models.RawFeedEvent{},
	)
}
