package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:100;uniqueIndex;not null"`
	Email        string    `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `gorm:"size:255;not null"`

	// Password reset via emailed backup code. Only the bcrypt hash is
	// stored; the code expires and the attempt counter caps brute force.
	BackupCodeHash       string `gorm:"size:255"`
	BackupCodeExpiresAt  *time.Time
	VerificationAttempts int `gorm:"default:0"`

	IsActive  bool `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.ID = uuid.New()
	return
}
