package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/db"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/repos"
)

type testEnv struct {
	db          *gorm.DB
	log         *logger.Logger
	userRepo    repos.UserRepo
	threadRepo  repos.ThreadRepo
	messageRepo repos.MessageRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	sqliteService, err := db.NewSQLiteService(log, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, sqliteService.AutoMigrateAll())
	gdb := sqliteService.DB()
	return &testEnv{
		db:          gdb,
		log:         log,
		userRepo:    repos.NewUserRepo(gdb, log),
		threadRepo:  repos.NewThreadRepo(gdb, log),
		messageRepo: repos.NewMessageRepo(gdb, log),
	}
}
