package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Visit is one recorded page visit with its resolved geolocation, the
// raw material for the map analytics view.
type Visit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IP        string    `gorm:"size:45;index" json:"ip"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Path      string    `gorm:"size:255" json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *Visit) BeforeCreate(tx *gorm.DB) (err error) {
	v.ID = uuid.New()
	return
}
