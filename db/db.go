// Package db owns the two connections the rest of the process shares: a
// pgxpool.Pool for the store's transactional hot path, and a *gorm.DB used
// only for schema bootstrap (AutoMigrate) and the Status Reporter's
// paginated listing query, where a query builder earns its keep over raw
// SQL.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rorocorp/uploadcore/model"
)

type DB struct {
	Pool *pgxpool.Pool
	Gorm *gorm.DB
}

// Connect opens both connections against the same databaseURL and runs
// AutoMigrate over the core's three tables (schema bootstrap is outside the
// store's correctness, but it has to happen somewhere).
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgxpool ping: %w", err)
	}

	gdb, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	if err := gdb.AutoMigrate(&model.FileMeta{}, &model.ChunkProgress{}, &model.SystemConfig{}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return &DB{Pool: pool, Gorm: gdb}, nil
}

// MarkInitialized upserts system_config.system_initialized = "success".
// Process bootstrap calls this once the schema is confirmed ready; it sits
// outside the store's own correctness but is how a deployment satisfies
// the FailedPrecondition gate on every mutating operation.
func (d *DB) MarkInitialized(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO system_config (config_key, config_value)
		VALUES ($1, $2)
		ON CONFLICT (config_key) DO UPDATE SET config_value = EXCLUDED.config_value
	`, model.ConfigKeySystemInitialized, model.SystemInitializedValue)
	return err
}

func (d *DB) Close() {
	d.Pool.Close()
	if sqlDB, err := d.Gorm.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
