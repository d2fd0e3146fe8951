package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// ResearchModel is one row of research_reports. Exactly one of UserID and
// GuestID is non-null.
type ResearchModel struct {
	ID            string    `gorm:"primaryKey"`
	Topic         string    `gorm:"type:text;not null"`
	RawReport     string    `gorm:"type:text;not null"`
	RefinedReport *string   `gorm:"type:text"`
	FinalPost     *string   `gorm:"type:text"`
	Step          int       `gorm:"not null;default:1"`
	UserID        *string   `gorm:"index"`
	GuestID       *string   `gorm:"index"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

func (ResearchModel) TableName() string { return "research_reports" }
