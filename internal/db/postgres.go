package db

import (
  "fmt"
  "strings"

  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"

  "github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
  "github.com/fluentclass/fluentclass-backend/internal/types"
  "github.com/fluentclass/fluentclass-backend/internal/utils"
)

type DatabaseService struct {
  db  *gorm.DB
  log *logger.Logger
}

// NewDatabaseService opens the lesson store. DB_DRIVER selects postgres
// (default) or sqlite; sqlite is the local-dev/ephemeral mode and skips the
// postgres-only extension setup.
func NewDatabaseService(log *logger.Logger) (*DatabaseService, error) {
  serviceLog := log.With("service", "DatabaseService")

  driver := strings.ToLower(strings.TrimSpace(utils.GetEnv("DB_DRIVER", "postgres", log)))
  switch driver {
  case "sqlite":
    path := utils.GetEnv("SQLITE_PATH", "fluentclass.db", log)
    log.Info("Connecting to SQLite...", "path", path)
    gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
      DisableForeignKeyConstraintWhenMigrating: true,
    })
    if err != nil {
      log.Error("Failed to connect to SQLite", "error", err)
      return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
    }
    return &DatabaseService{db: gdb, log: serviceLog}, nil

  case "postgres":
    log.Info("Loading environment variables...")
    postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
    postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
    postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
    postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
    postgresName := utils.GetEnv("POSTGRES_NAME", "fluentclass", log)
    log.Debug("Environment variables loaded")

    dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

    log.Info("Connecting to Postgres...")
    gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
      DisableForeignKeyConstraintWhenMigrating: true,
    })
    if err != nil {
      log.Error("Failed to connect to Postgres", "error", err)
      return nil, fmt.Errorf("failed to connect to postgres: %w", err)
    }

    if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
      log.Error("Failed to enable uuid-ossp extension", "error", err)
      return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
    }
    log.Info("uuid-ossp extension enabled")

    return &DatabaseService{db: gdb, log: serviceLog}, nil
  }

  return nil, fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", driver)
}

func (s *DatabaseService) AutoMigrateAll() error {
  s.log.Info("Auto migrating tables...")
  err := s.db.AutoMigrate(
    &types.Lesson{},
    &types.LessonGenerationRun{},
    &types.LessonImage{},
    &types.AICallLog{},
  )
  if err != nil {
    s.log.Error("Auto migration failed", "error", err)
    return err
  }
  return nil
}

func (s *DatabaseService) DB() *gorm.DB {
  return s.db
}
