package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"zapisnik/internal/catalog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Ошибки хранилища. ErrSlotTaken — ожидаемый бизнес-результат гонки за слот,
// ErrUnavailable — отказ ввода-вывода.
var (
	ErrSlotTaken   = errors.New("slot already taken")
	ErrNotFound    = errors.New("appointment not found")
	ErrPastDate    = errors.New("date is in the past")
	ErrDateTooFar  = errors.New("date is too far in the future")
	ErrUnavailable = errors.New("storage unavailable")
)

type DB struct {
	db      *sql.DB
	catalog *catalog.Catalog
	logger  *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// :memory: живет в рамках одного соединения, пул тут обязан быть из одного
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("База данных инициализирована")
	return &DB{db: db, catalog: catalog.New(nil), logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица записей
		`CREATE TABLE IF NOT EXISTS appointments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            chat_id INTEGER NOT NULL,
            provider TEXT NOT NULL,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            name TEXT NOT NULL,
            phone TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Единственный источник истины для конфликтов: слот уникален
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_slot ON appointments(provider, date, time)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_chat_id ON appointments(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetCatalog задает справочник слотов, используемый при расчете свободного
// времени.
func (db *DB) SetCatalog(c *catalog.Catalog) {
	if c != nil {
		db.catalog = c
	}
}

func (db *DB) Close() error {
	return db.db.Close()
}
