// Package db opens the sqlite database shared by the gorm-backed stores.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newthinker/meridian/internal/core"
)

// SQLiteDSN builds a file DSN with WAL and a busy timeout.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
}

// MemoryDSN returns a DSN for a named in-memory database.
func MemoryDSN(name string) string {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*gorm.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, core.Errorf(core.ErrStorage, "sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, core.WrapError(core.ErrStorage, err)
		}
	}
	return OpenDSN(SQLiteDSN(path))
}

// OpenDSN opens a sqlite database from a raw DSN.
func OpenDSN(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	// sqlite allows one writer; keep the pool small
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
