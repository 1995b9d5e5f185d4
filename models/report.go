package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report is one stored LOTO report: the canonical JSON document plus the
// metadata the list page shows. Photo bytes live in the photos table and
// are referenced here by name/hash pairs.
type Report struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string         `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Document datatypes.JSON `gorm:"type:jsonb;not null" json:"document"`
	// Photos is the accepted attachment list: [{"photo_name": ..., "photo_hash": ...}]
	Photos   datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"photos"`
	Tags     pq.StringArray `gorm:"type:text[]" json:"tags"`
	Notes    string         `gorm:"type:text" json:"notes"`
	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	UploadedByID *uuid.UUID `gorm:"type:uuid" json:"uploaded_by_id"`
	UploadedBy   *User      `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`

	DateAdded     time.Time  `json:"date_added"`
	LastGenerated *time.Time `json:"last_generated,omitempty"`
	PDFFileName   string     `gorm:"size:255" json:"pdf_filename"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	r.ID = uuid.New()
	if r.DateAdded.IsZero() {
		r.DateAdded = time.Now()
	}
	return
}

// ReportListItem is the list/pagination row shape for the reports page.
type ReportListItem struct {
	Name          string     `json:"name"`
	DateAdded     time.Time  `json:"date_added"`
	LastGenerated *time.Time `json:"last_generated,omitempty"`
	PhotoCount    int        `json:"photo_count"`
	UploadedBy    string     `json:"uploaded_by,omitempty"`
}

// PhotoAttachment is one entry of Report.Photos.
type PhotoAttachment struct {
	PhotoName string `json:"photo_name"`
	PhotoHash string `json:"photo_hash"`
}
