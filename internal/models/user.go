package models

import "time"

// User is a managed account with a subscription window. Passwords are stored
// as bcrypt hashes.
type User struct {
	No           uint64    `gorm:"primaryKey;autoIncrement" json:"no"`
	LoginID      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"id"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	EndDate      time.Time `gorm:"type:date;not null" json:"end_date"`
	Name         string    `gorm:"type:varchar(50)" json:"name"`
	Phone        string    `gorm:"type:varchar(20)" json:"phone"`
	Referrer     string    `gorm:"type:varchar(50)" json:"referrer"`
	LoggedIn     bool      `gorm:"default:false" json:"logged_in"`
	LastLogin    *time.Time `gorm:"type:timestamptz" json:"last_login"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
