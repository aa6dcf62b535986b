package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sentinelbank/fraud-service/internal/models"
)

const (
	pqSerializationFailure = "40001"
	pqUniqueViolation      = "23505"

	// maxTxAttempts bounds retries of a write unit that lost a serialization
	// conflict before ErrConsistency is surfaced.
	maxTxAttempts = 5
)

// PostgresStore implements Store on PostgreSQL. Write units run at
// SERIALIZABLE isolation so two concurrent units for the same user cannot both
// read a stale rapid-window count and both pass; the loser aborts with a
// serialization failure and is retried.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(TxStore) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrConsistency, lastErr)
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&pgTxStore{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, selectTransactionQuery, id))
}

// ListInconsistentTransactionIDs returns the identifiers of transactions whose
// status flag disagrees with the alert log. Used by the audit sweep; under
// normal operation it returns nothing.
func (s *PostgresStore) ListInconsistentTransactionIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT t.id
		FROM transactions t
		LEFT JOIN alerts a ON a.transaction_id = t.id
		GROUP BY t.id, t.status
		HAVING (t.status = 'FLAGGED' AND COUNT(a.id) = 0)
		    OR (t.status = 'OK' AND COUNT(a.id) > 0)
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for inconsistencies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqSerializationFailure
}

// pgTxStore implements TxStore over one open *sql.Tx.
type pgTxStore struct {
	tx *sql.Tx
}

const selectTransactionQuery = `
	SELECT id, user_id, amount, location, txn_type, txn_time, status, created_at, updated_at
	FROM transactions
	WHERE id = $1
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.Amount, &txn.Location,
		&txn.Type, &txn.Timestamp, &txn.Status,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (t *pgTxStore) InsertTransaction(txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, location, txn_type, txn_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := t.tx.QueryRow(query,
		txn.ID, txn.UserID, txn.Amount, txn.Location,
		txn.Type, txn.Timestamp, txn.Status,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (t *pgTxStore) UpdateTransaction(txn *models.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $2, location = $3, txn_type = $4, txn_time = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := t.tx.QueryRow(query,
		txn.ID, txn.Amount, txn.Location, txn.Type, txn.Timestamp,
	).Scan(&txn.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

func (t *pgTxStore) DeleteTransaction(id string) error {
	res, err := t.tx.Exec(`DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (t *pgTxStore) GetTransaction(id string) (*models.Transaction, error) {
	return scanTransaction(t.tx.QueryRow(selectTransactionQuery, id))
}

func (t *pgTxStore) SetTransactionStatus(id, status string) error {
	res, err := t.tx.Exec(`UPDATE transactions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set transaction status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (t *pgTxStore) ListUserTransactionsBetween(userID string, from, to time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, location, txn_type, txn_time, status, created_at, updated_at
		FROM transactions
		WHERE user_id = $1 AND txn_time >= $2 AND txn_time <= $3
		ORDER BY txn_time, id
	`
	rows, err := t.tx.Query(query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions in window: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func (t *pgTxStore) InsertAlert(alert *models.Alert) error {
	query := `
		INSERT INTO alerts (transaction_id, user_id, amount, kind, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	err := t.tx.QueryRow(query,
		alert.TransactionID, alert.UserID, alert.Amount, alert.Kind, alert.Reason,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (t *pgTxStore) DeleteAlert(id int64) error {
	if _, err := t.tx.Exec(`DELETE FROM alerts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

func (t *pgTxStore) DeleteAlertsForTransaction(transactionID string) error {
	if _, err := t.tx.Exec(`DELETE FROM alerts WHERE transaction_id = $1`, transactionID); err != nil {
		return fmt.Errorf("failed to delete alerts for transaction: %w", err)
	}
	return nil
}

func (t *pgTxStore) ListAlertsForTransaction(transactionID string) ([]models.Alert, error) {
	query := `
		SELECT id, transaction_id, user_id, amount, kind, reason, created_at
		FROM alerts
		WHERE transaction_id = $1
		ORDER BY id
	`
	rows, err := t.tx.Query(query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.UserID, &a.Amount, &a.Kind, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
