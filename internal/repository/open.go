package repository

import (
	"context"
	"fmt"

	"github.com/farmconnect/contracts-api/internal/config"
	"github.com/farmconnect/contracts-api/internal/database"
	"github.com/farmconnect/contracts-api/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Backend holds the open database handles behind a Repositories set
type Backend struct {
	DB    *gorm.DB
	Mongo *mongo.Client
}

// Close releases every open handle
func (b *Backend) Close(ctx context.Context) {
	if b.Mongo != nil {
		if err := b.Mongo.Disconnect(ctx); err != nil {
			logger.Warn("failed to disconnect mongo", "error", err)
		}
	}
	if b.DB != nil {
		if sqlDB, err := b.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// Open connects to the configured driver, brings the schema up to date and
// returns the repositories. With DATABASE_DRIVER=mongo only contracts and
// their ledgers move to MongoDB; the directory, chat and audit stay in
// PostgreSQL.
func Open(ctx context.Context, cfg *config.Config) (*Repositories, *Backend, error) {
	backend := &Backend{}

	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := database.ConnectSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		backend.DB = db
		if err := database.AutoMigrate(db); err != nil {
			backend.Close(ctx)
			return nil, nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	default:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		backend.DB = db
		if err := database.Migrate(db); err != nil {
			backend.Close(ctx)
			return nil, nil, err
		}
	}
	repos := NewRepositories(backend.DB)

	if cfg.DatabaseDriver == config.DriverMongo {
		client, err := database.ConnectMongo(ctx, cfg.MongoURL)
		if err != nil {
			backend.Close(ctx)
			return nil, nil, err
		}
		backend.Mongo = client
		if err := EnsureMongoIndexes(ctx, client, cfg.MongoDatabase); err != nil {
			backend.Close(ctx)
			return nil, nil, err
		}
		repos.WithContractStore(NewMongoContractStore(client, cfg.MongoDatabase))
	}

	logger.Info("connected to database", "driver", cfg.DatabaseDriver)
	return repos, backend, nil
}
