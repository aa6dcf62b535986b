package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionView is the read-optimised projection of a transaction.
type TransactionView struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Location  string          `json:"location"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdTimestamp"`
	UpdatedAt time.Time       `json:"updatedTimestamp"`
}

// SuspiciousActivityView joins an alert with the current state of the
// transaction that triggered it. Transaction is nil for alerts whose
// transaction no longer exists; the denormalised fields on the alert itself
// still describe what was flagged.
type SuspiciousActivityView struct {
	Alert
	Transaction *TransactionView `json:"transaction"`
}
