package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

// SQLiteService is the development and test store. The DSN must enable
// foreign_keys, otherwise the cascade constraints are silently ignored.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(log *logger.Logger, dsn string) (*SQLiteService, error) {
	serviceLog := log.With("service", "SQLiteService")
	if dsn == "" {
		dsn = "file:assistant.db?_pragma=foreign_keys(1)"
	}
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Error("Failed to open SQLite DB", "error", err, "dsn", dsn)
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// In-memory databases exist per connection; a single connection keeps
	// every session on the same database.
	sqlDB.SetMaxOpenConns(1)
	return &SQLiteService{db: gdb, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Starting AutoMigrateAll for all GORM models now...")
	if err := s.db.AutoMigrate(
		&types.User{},
		&types.Thread{},
		&types.Message{},
	); err != nil {
		s.log.Error("AutoMigrateAll failed", "error", err)
		return err
	}
	s.log.Info("AutoMigrateAll completed successfully")
	return nil
}

func (s *SQLiteService) DB() *gorm.DB {
	return s.db
}
