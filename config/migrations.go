package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/loto/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "10032026_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Report{}, &models.Photo{},
					&models.EnergySourceType{})
			},
		},
		{
			ID: "14032026_add_visits_table",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Visit{})
			},
		},
		{
			ID: "02042026_add_report_pdf_filename",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Report{})
			},
		},
	})

	return m.Migrate()
}
