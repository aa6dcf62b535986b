package cqrs

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransactionCommand records a new transaction and runs fraud detection
// over it. A zero Timestamp means "now".
type CreateTransactionCommand struct {
	UserID    string
	Amount    decimal.Decimal
	Location  string
	Type      string
	Timestamp time.Time
}

// UpdateTransactionCommand rewrites a transaction's mutable attributes and
// re-runs fraud detection. The owning user cannot be changed. A zero Timestamp
// keeps the stored one.
type UpdateTransactionCommand struct {
	TransactionID string
	Amount        decimal.Decimal
	Location      string
	Type          string
	Timestamp     time.Time
}

type DeleteTransactionCommand struct {
	TransactionID string
}
