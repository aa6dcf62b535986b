package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(databaseURL string) (*sql.DB, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database.SetMaxOpenConns(25)
	database.SetMaxIdleConns(5)
	database.SetConnMaxLifetime(5 * time.Minute)

	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

func runMigrations(database *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			amount NUMERIC(15,2) NOT NULL,
			location VARCHAR(255) NOT NULL,
			txn_type VARCHAR(10) NOT NULL CHECK (txn_type IN ('Credit', 'Debit')),
			txn_time TIMESTAMPTZ NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'OK',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, txn_time)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			transaction_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			amount NUMERIC(15,2) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// One alert per rule per transaction, enforced at the storage layer.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_transaction_kind ON alerts(transaction_id, kind)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := database.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
