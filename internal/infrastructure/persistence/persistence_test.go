package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/skeo/stocksync/internal/infrastructure/persistence/models"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
// The pool is pinned to one connection because each SQLite memory database
// is visible to its own connection only.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.SnapshotEntryModel{},
		&models.SyncPassModel{},
		&models.PushLogModel{},
		&models.CredentialModel{},
		&models.ChannelQuirkModel{},
	))
	return db
}
