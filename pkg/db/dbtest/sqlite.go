// Package dbtest opens isolated in-memory SQLite databases carrying the full
// application schema for store-backed tests.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/migrate"
)

// NewSQLite returns a fresh database per call. Only one connection is
// allowed, so code running inside WithTx must use the tx handle exclusively.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.ApplySQLiteSchema(conn))
	return conn
}

// NewClient wraps NewSQLite in a db.Client for services that need WithTx.
func NewClient(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := NewSQLite(t)
	return db.Wrap(conn), conn
}
