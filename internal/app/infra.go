package app

import (
	"context"

	"payshield/internal/auth/credentials"
	"payshield/internal/config"
	"payshield/internal/db"
	"payshield/internal/logger"
	"payshield/internal/profile"
	"payshield/internal/redis"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client

	Profiles    profile.Repository
	Credentials credentials.Repository
}

// setupInfra connects postgres and redis. Without DATABASE_DSN the
// service runs on in-memory repositories; without REDIS_ADDR sign-in is
// not throttled.
func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if cfg.DatabaseDSN == "" {
		logger.Warn("DATABASE_DSN not set, using in-memory repositories", nil)
		infra.Profiles = profile.NewMemoryRepository()
		infra.Credentials = credentials.NewMemoryRepository()
	} else {
		database, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := db.RunProfileMigration(ctx, database.DB); err != nil {
			_ = database.Close()
			return nil, err
		}
		logger.Info("database ready", nil)

		infra.DB = database
		infra.Profiles = profile.NewPostgresRepository(database)
		infra.Credentials = credentials.NewPostgresRepository(database)
	}

	if cfg.RedisAddr != "" {
		client, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})
		infra.Redis = client
	}

	return infra, nil
}

func (i *Infra) Close() error {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.DB != nil {
		return i.DB.Close()
	}
	return nil
}
