package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
	"github.com/nextpointlabs/nextpoint-backend/internal/utils"
)

// ErrDatabaseUnavailable marks connect failures that exhausted the boot
// wait. The server process maps it to a distinct exit code so the deploy
// wrapper can tell "database never came up" from other startup failures.
var ErrDatabaseUnavailable = errors.New("database unavailable")

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService connects to Postgres with a bounded synchronous wait:
// DB_WAIT_ATTEMPTS attempts (default 30), a fixed DB_WAIT_INTERVAL_S sleep
// between them (default 2s), no backoff. The database is usually a sibling
// container that comes up seconds after us; a flat short interval reaches
// it fastest and the bound keeps a dead database from hanging the deploy.
func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "nextpoint", log)
	waitAttempts := utils.GetEnvAsInt("DB_WAIT_ATTEMPTS", 30, log)
	waitInterval := utils.GetEnvAsInt("DB_WAIT_INTERVAL_S", 2, log)
	if waitAttempts < 1 {
		log.Warn("DB_WAIT_ATTEMPTS below 1, using 1", "configured", waitAttempts)
		waitAttempts = 1
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= waitAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err == nil {
			if sqlDB, pingErr := db.DB(); pingErr == nil {
				if pingErr = sqlDB.Ping(); pingErr == nil {
					break
				} else {
					err = pingErr
				}
			} else {
				err = pingErr
			}
		}
		serviceLog.Warn("Postgres not ready", "attempt", attempt, "max_attempts", waitAttempts, "error", err)
		if attempt < waitAttempts {
			time.Sleep(time.Duration(waitInterval) * time.Second)
		}
	}
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "attempts", waitAttempts, "error", err)
		return nil, fmt.Errorf("%w: after %d attempts: %v", ErrDatabaseUnavailable, waitAttempts, err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
	}

	serviceLog.Info("Connected to Postgres")
	return &PostgresService{db: db, log: serviceLog}, nil
}

// AutoMigrateAll creates the bronze schema and base tables. Views are
// handled separately by RebuildViews because they must be dropped and
// recreated on every deploy, not migrated.
func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	for _, schema := range []string{"bronze", "analytics"} {
		if err := s.db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, schema)).Error; err != nil {
			s.log.Error("Failed to create schema", "schema", schema, "error", err)
			return fmt.Errorf("Failed to create schema %s: %w", schema, err)
		}
	}
	err := s.db.AutoMigrate(
		&types.User{},
		&types.PointEvent{},
		&types.SubmissionContext{},
		&types.TrimJob{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
