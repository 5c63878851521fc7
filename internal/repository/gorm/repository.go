package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lobbywatch/internal/auth"
	"lobbywatch/internal/models"
	"lobbywatch/internal/repository"
)

type Store struct {
	db     *gorm.DB
	tokens *auth.TokenCipher
}

// New wraps a gorm handle. The token cipher guards feed session tokens at
// rest and may be nil, in which case tokens are stored as-is.
func New(db *gorm.DB, tokens *auth.TokenCipher) *Store {
	return &Store{db: db, tokens: tokens}
}

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.User
	if err := s.db.WithContext(ctx).Order("no DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetUserByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("login_id = ?", strings.TrimSpace(loginID)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("login_id = ?", item.LoginID).
		Updates(map[string]any{
			"password_hash": item.PasswordHash,
			"end_date":      item.EndDate,
			"name":          item.Name,
			"phone":         item.Phone,
			"referrer":      item.Referrer,
		}).Error
}

func (s *Store) DeleteUser(ctx context.Context, loginID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Where("login_id = ?", loginID).Delete(&models.User{}).Error
}

func (s *Store) SetUserLoggedIn(ctx context.Context, loginID string, loggedIn bool, at *time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{"logged_in": loggedIn}
	if at != nil {
		updates["last_login"] = *at
	}
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("login_id = ?", loginID).
		Updates(updates).Error
}

func (s *Store) ExpireUsersPast(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("end_date < ?", cutoff).
		Where("logged_in = ?", true).
		Update("logged_in", false)
	return res.RowsAffected, res.Error
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// --- feed sessions ----------------------------------------------------------

func (s *Store) UpsertFeedSession(ctx context.Context, item *models.FeedSession) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	row := *item
	row.SessionToken = s.tokens.Seal(row.UserID, row.SessionToken)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_token", "bare_session_id", "instance", "client_version", "updated_at"}),
	}).Create(&row).Error
}

func (s *Store) GetFeedSession(ctx context.Context, userID string) (*models.FeedSession, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FeedSession
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.SessionToken = s.tokens.Open(item.UserID, item.SessionToken)
	return &item, nil
}

// --- settings ---------------------------------------------------------------

func (s *Store) UpsertStreakSettings(ctx context.Context, item *models.StreakSettings) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_streak", "banker_streak", "min_results", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) GetStreakSettings(ctx context.Context, userID string) (*models.StreakSettings, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.StreakSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertPredictionSettings(ctx context.Context, item *models.PredictionSettings) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"algorithm", "sample_size", "confidence_threshold", "loss_limit", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) GetPredictionSettings(ctx context.Context, userID string) (*models.PredictionSettings, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PredictionSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- room mappings ----------------------------------------------------------

func (s *Store) ReplaceRoomMappings(ctx context.Context, userID string, mappings map[string]string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RoomMapping{}).Error; err != nil {
			return err
		}
		if len(mappings) == 0 {
			return nil
		}
		items := make([]models.RoomMapping, 0, len(mappings))
		for roomID, name := range mappings {
			roomID = strings.TrimSpace(roomID)
			if roomID == "" {
				continue
			}
			items = append(items, models.RoomMapping{
				UserID:      userID,
				RoomID:      roomID,
				DisplayName: name,
			})
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (s *Store) ListRoomMappings(ctx context.Context, userID string) (map[string]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.RoomMapping
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.RoomID] = item.DisplayName
	}
	return out, nil
}

// --- filter keywords --------------------------------------------------------

func (s *Store) ReplaceFilterKeywords(ctx context.Context, userID string, keywords []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.FilterKeyword{}).Error; err != nil {
			return err
		}
		items := make([]models.FilterKeyword, 0, len(keywords))
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			items = append(items, models.FilterKeyword{
				UserID:  userID,
				Keyword: kw,
			})
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (s *Store) ListFilterKeywords(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.FilterKeyword
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Keyword)
	}
	return out, nil
}

// --- bet signals ------------------------------------------------------------

func (s *Store) InsertBetSignal(ctx context.Context, item *models.BetSignal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateBetSignalOutcome(ctx context.Context, id string, outcome string, won bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.BetSignal{}).
		Where("id = ?", id).
		Updates(map[string]any{"outcome": outcome, "won": won}).Error
}

func (s *Store) ListBetSignals(ctx context.Context, params repository.ListBetSignalsParams) ([]models.BetSignal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.BetSignal{})
	if params.UserID != "" {
		query = query.Where("user_id = ?", params.UserID)
	}
	if params.RoomID != "" {
		query = query.Where("room_id = ?", params.RoomID)
	}
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.BetSignal
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBetSignals(ctx context.Context, userID, roomID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.BetSignal{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if roomID != "" {
		query = query.Where("room_id = ?", roomID)
	}
	var n int64
	err := query.Count(&n).Error
	return n, err
}

func (s *Store) DeleteBetSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.BetSignal{})
	return res.RowsAffected, res.Error
}

// --- raw feed events --------------------------------------------------------

func (s *Store) InsertRawFeedEvent(ctx context.Context, item *models.RawFeedEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) DeleteRawFeedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&models.RawFeedEvent{})
	return res.RowsAffected, res.Error
}
