package repository

import (
	"context"
	"time"

	"lobbywatch/internal/models"
)

type ListBetSignalsParams struct {
	UserID string
	RoomID string
	Limit  int
	Offset int
}

// Repository is the persistence boundary. The monitoring pipeline only writes
// through it; it never reads persisted state on the hot path.
type Repository interface {
	// users (admin panel)
	CreateUser(ctx context.Context, item *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByLoginID(ctx context.Context, loginID string) (*models.User, error)
	UpdateUser(ctx context.Context, item *models.User) error
	DeleteUser(ctx context.Context, loginID string) error
	SetUserLoggedIn(ctx context.Context, loginID string, loggedIn bool, at *time.Time) error
	ExpireUsersPast(ctx context.Context, cutoff time.Time) (int64, error)
	CountUsers(ctx context.Context) (int64, error)

	// feed sessions
	UpsertFeedSession(ctx context.Context, item *models.FeedSession) error
	GetFeedSession(ctx context.Context, userID string) (*models.FeedSession, error)

	// settings
	UpsertStreakSettings(ctx context.Context, item *models.StreakSettings) error
	GetStreakSettings(ctx context.Context, userID string) (*models.StreakSettings, error)
	UpsertPredictionSettings(ctx context.Context, item *models.PredictionSettings) error
	GetPredictionSettings(ctx context.Context, userID string) (*models.PredictionSettings, error)

	// room mappings
	ReplaceRoomMappings(ctx context.Context, userID string, mappings map[string]string) error
	ListRoomMappings(ctx context.Context, userID string) (map[string]string, error)

	// filter keywords
	ReplaceFilterKeywords(ctx context.Context, userID string, keywords []string) error
	ListFilterKeywords(ctx context.Context, userID string) ([]string, error)

	// bet signals
	InsertBetSignal(ctx context.Context, item *models.BetSignal) error
	UpdateBetSignalOutcome(ctx context.Context, id string, outcome string, won bool) error
	ListBetSignals(ctx context.Context, params ListBetSignalsParams) ([]models.BetSignal, error)
	CountBetSignals(ctx context.Context, userID, roomID string) (int64, error)
	DeleteBetSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// raw feed events
	InsertRawFeedEvent(ctx context.Context, item *models.RawFeedEvent) error
	DeleteRawFeedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
