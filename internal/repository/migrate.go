package repository

import "gorm.io/gorm"

// AutoMigrate creates the tables backing the reference storage collaborator.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&resultRow{}, &certificateRow{}, &progressRow{})
}
