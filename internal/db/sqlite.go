package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/types"
	"github.com/dwoslabs/dwos-backend/internal/utils"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(log *logger.Logger) (*SQLiteService, error) {
	serviceLog := log.With("service", "SQLiteService")

	path := utils.GetEnv("SQLITE_PATH", "dwos.db", log)

	log.Info("Connecting to SQLite...", "path", path)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Error("Failed to open SQLite database", "error", err)
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteService{db: gdb, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := s.db.AutoMigrate(
		&types.WorkOrderRecord{},
	); err != nil {
		s.log.Error("Auto migration failed for sqlite tables", "error", err)
		return err
	}
	s.log.Info("Sqlite tables migrated")
	return nil
}

func (s *SQLiteService) DB() *gorm.DB {
	return s.db
}
