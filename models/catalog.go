package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"p9e.in/loto/pkg/loto"
)

// EnergySourceType is one catalog row: the extra input fields and the
// device/method option lists for a single hazardous-energy category.
// Seeded at migration time and read-only afterwards.
type EnergySourceType struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string         `gorm:"size:50;uniqueIndex;not null" json:"name"`
	DisplayOrder        int            `gorm:"default:0" json:"display_order"`
	ExtraFields         datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"extra_fields"`
	Devices             datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"devices"`
	IsolationMethods    datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"isolation_methods"`
	VerificationMethods datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"verification_methods"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (e *EnergySourceType) BeforeCreate(tx *gorm.DB) (err error) {
	e.ID = uuid.New()
	return
}

// ToDefinition converts the row into the form engine's catalog entry.
func (e *EnergySourceType) ToDefinition() (loto.TypeDefinition, error) {
	def := loto.TypeDefinition{TypeName: e.Name}
	if err := json.Unmarshal(e.ExtraFields, &def.ExtraFields); err != nil {
		return def, err
	}
	if err := json.Unmarshal(e.Devices, &def.DeviceOptions); err != nil {
		return def, err
	}
	if err := json.Unmarshal(e.IsolationMethods, &def.IsolationMethodOptions); err != nil {
		return def, err
	}
	if err := json.Unmarshal(e.VerificationMethods, &def.VerificationMethodOptions); err != nil {
		return def, err
	}
	return def, nil
}
