package database

import (
	"embed"
	"fmt"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded goose migrations to a PostgreSQL database
func Migrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// AutoMigrate creates the schema from the models. Used for SQLite, where the
// PostgreSQL migration files do not apply.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Models lists every table the relational store owns
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Contract{},
		&models.ContractBid{},
		&models.Delivery{},
		&models.Payment{},
		&models.ChatChannel{},
		&models.ChatMessage{},
		&models.AuditLog{},
	}
}
