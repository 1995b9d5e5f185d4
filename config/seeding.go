package config

import (
	"encoding/json"
	"log"

	"gorm.io/datatypes"
	"p9e.in/loto/models"
	"p9e.in/loto/pkg/loto"
)

type catalogSeed struct {
	name         string
	extraFields  []loto.FieldSpec
	devices      []string
	isolation    []string
	verification []string
}

var energySourceSeeds = []catalogSeed{
	{
		name: "Electric",
		extraFields: []loto.FieldSpec{
			{Name: "volt", Unit: "volts", Title: "Voltage"},
		},
		devices:      []string{"Main Disconnect", "Breaker Panel", "MCC Bucket", "Plug"},
		isolation:    []string{"Lock and Tag", "Breaker Lockout", "Plug Lockout"},
		verification: []string{"Voltmeter", "Voltage Tester", "Attempt Start"},
	},
	{
		name: "Chemical",
		extraFields: []loto.FieldSpec{
			{Name: "chemical_name", Unit: "", Title: "Chemical Name", Kind: loto.FieldFreeText},
			{Name: "psi", Unit: "psi", Title: "Pressure"},
		},
		devices:      []string{"Ball Valve", "Gate Valve", "Line Blind"},
		isolation:    []string{"Valve Lockout", "Blank Flange", "Line Break"},
		verification: []string{"Pressure Gauge", "Visual Inspection"},
	},
	{
		name: "Pneumatic",
		extraFields: []loto.FieldSpec{
			{Name: "psi", Unit: "psi", Title: "Pressure"},
		},
		devices:      []string{"Shutoff Valve", "Quick Disconnect", "Manifold Valve"},
		isolation:    []string{"Valve Lockout", "Bleed Down"},
		verification: []string{"Pressure Gauge", "Bleed Valve"},
	},
	{
		name: "Hydraulic",
		extraFields: []loto.FieldSpec{
			{Name: "psi", Unit: "psi", Title: "Pressure"},
		},
		devices:      []string{"Pump Disconnect", "Shutoff Valve"},
		isolation:    []string{"Valve Lockout", "Bleed Down", "Block and Bleed"},
		verification: []string{"Pressure Gauge", "Attempt Actuation"},
	},
	{
		name: "Thermal",
		extraFields: []loto.FieldSpec{
			{Name: "temperature", Unit: "degrees", Title: "Temperature"},
		},
		devices:      []string{"Steam Valve", "Heater Disconnect"},
		isolation:    []string{"Valve Lockout", "Cool Down Period"},
		verification: []string{"Thermometer", "Visual Inspection"},
	},
	{
		name: "Mechanical",
		extraFields: []loto.FieldSpec{
			{Name: "rpm", Unit: "rpm", Title: "Rotational Speed"},
		},
		devices:      []string{"Drive Coupling", "Flywheel Pin", "Chain Guard"},
		isolation:    []string{"Block Movement", "Release Tension"},
		verification: []string{"Visual Inspection", "Attempt Start"},
	},
	{
		name: "Gravity",
		extraFields: []loto.FieldSpec{
			{Name: "weight", Unit: "lbs", Title: "Suspended Weight"},
		},
		devices:      []string{"Safety Pin", "Support Block", "Chain Hoist"},
		isolation:    []string{"Block or Pin in Place", "Lower to Rest Position"},
		verification: []string{"Visual Inspection"},
	},
}

// SeedEnergySources inserts the LOTO energy source catalog. Skips types
// that already exist so the seed is safe to run on every boot.
func SeedEnergySources() {
	for order, seed := range energySourceSeeds {
		var count int64
		DB.Model(&models.EnergySourceType{}).Where("name = ?", seed.name).Count(&count)
		if count > 0 {
			continue
		}
		row := models.EnergySourceType{
			Name:                seed.name,
			DisplayOrder:        order,
			ExtraFields:         mustJSON(seed.extraFields),
			Devices:             mustJSON(seed.devices),
			IsolationMethods:    mustJSON(seed.isolation),
			VerificationMethods: mustJSON(seed.verification),
		}
		if err := DB.Create(&row).Error; err != nil {
			log.Printf("❌ Error seeding energy source %s: %v", seed.name, err)
			continue
		}
		log.Printf("✅ Seeded energy source: %s", seed.name)
	}
}

// LoadCatalog reads the seeded catalog rows into the form engine's
// immutable catalog, in display order.
func LoadCatalog() (*loto.Catalog, error) {
	var rows []models.EnergySourceType
	if err := DB.Order("display_order ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	defs := make([]loto.TypeDefinition, 0, len(rows))
	for _, row := range rows {
		def, err := row.ToDefinition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return loto.NewCatalog(defs), nil
}

func mustJSON(v interface{}) datatypes.JSON {
	data, _ := json.Marshal(v)
	return datatypes.JSON(data)
}
