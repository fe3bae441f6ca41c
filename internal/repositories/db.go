package repositories

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lectorium/server/internal/models"
)

// Connect opens the database and runs migrations. TranslateError lets the
// repositories detect unique-index violations as gorm.ErrDuplicatedKey.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Chapter{},
		&models.Like{},
		&models.Authorship{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
