package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// sqlitePragmas turns on foreign keys so SET NULL / CASCADE / RESTRICT behave as on PostgreSQL
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// OpenSQLite opens a single-file database with the CGO-free driver.
// ":memory:" and "file:" DSNs keep their location; the pragmas are appended to every DSN.
func OpenSQLite(dbPath string) (*gorm.DB, error) {
	if dbPath == "" {
		dbPath = "./data/shop.db"
	}

	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := withPragmas(dbPath)

	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to local database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions serialized
	sqlDB.SetMaxOpenConns(1)

	return conn, nil
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

// OpenInMemory opens a migrated private in-memory database named name.
// Used by tests and by the demo mode of the server.
func OpenInMemory(name string) (*gorm.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	conn, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(conn); err != nil {
		return nil, err
	}
	return conn, nil
}
