package repository

import (
	"context"
	"time"

	"github.com/sentinelbank/fraud-service/internal/models"
)

// TxStore is the set of write-side operations available inside one atomic unit
// of work. Either every call made through it is committed together or none is;
// no reader observes a transaction row without its reconciled alerts and
// status.
type TxStore interface {
	InsertTransaction(txn *models.Transaction) error
	UpdateTransaction(txn *models.Transaction) error
	DeleteTransaction(id string) error
	GetTransaction(id string) (*models.Transaction, error)
	SetTransactionStatus(id, status string) error

	// ListUserTransactionsBetween returns the user's transactions with
	// timestamps in [from, to], both inclusive, ordered by timestamp. This is
	// the history feed for the rapid-transaction rule.
	ListUserTransactionsBetween(userID string, from, to time.Time) ([]models.Transaction, error)

	InsertAlert(alert *models.Alert) error
	DeleteAlert(id int64) error
	DeleteAlertsForTransaction(transactionID string) error
	ListAlertsForTransaction(transactionID string) ([]models.Alert, error)
}

// Store opens atomic units of work against the transaction and alert tables.
type Store interface {
	// WithinTx runs fn inside one atomic unit. Transient conflicts between
	// concurrent units are retried internally; ErrConsistency is returned
	// once retries are exhausted.
	WithinTx(ctx context.Context, fn func(TxStore) error) error

	// GetTransaction reads a single transaction outside any write unit.
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
}
