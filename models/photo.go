package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Photo stores uploaded image content, deduplicated by SHA-256: an
// attachment whose hash already exists reuses the stored row instead of
// writing the bytes again.
type Photo struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:255;index;not null" json:"name"`
	Hash        string    `gorm:"size:64;uniqueIndex;not null" json:"hash"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Size        int64     `json:"size"`
	Data        []byte    `gorm:"type:bytea" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Photo) BeforeCreate(tx *gorm.DB) (err error) {
	p.ID = uuid.New()
	return
}
