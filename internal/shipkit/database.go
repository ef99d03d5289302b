package shipkit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// databaseSchema is the minimal schema of a fresh application database.
var databaseSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status TEXT DEFAULT 'active'
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT
	)`,
	`INSERT OR IGNORE INTO settings (key, value) VALUES ('version', '1.0.0'), ('database_version', '1')`,
}

// createEmptyDatabase creates a schema-initialised SQLite file at path.
func createEmptyDatabase(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", path, err)
	}
	defer db.Close()

	for _, stmt := range databaseSchema {
		if _, err := db.Exec(stmt); err != nil {
			os.Remove(path)
			return fmt.Errorf("failed to initialise database %s: %w", path, err)
		}
	}
	return nil
}

// databaseVersion reads the version marker of an application database.
func databaseVersion(path string) (string, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var v string
	if err := db.QueryRow(`SELECT value FROM settings WHERE key = 'version'`).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}
