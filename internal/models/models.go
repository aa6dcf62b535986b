package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TypeCredit = "Credit"
	TypeDebit  = "Debit"
)

// Transaction statuses. Status is derived from the alert log by the command
// service and is never set directly by a caller.
const (
	StatusOK      = "OK"
	StatusFlagged = "FLAGGED"
)

// ViolationKind tags which fraud rule a transaction broke.
type ViolationKind string

const (
	ViolationHighAmount        ViolationKind = "high_amount"
	ViolationRapidTransactions ViolationKind = "rapid_transactions"
)

type Transaction struct {
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

// Alert records one rule violation. UserID and Amount are denormalised copies
// taken at detection time, so an alert stays meaningful if its transaction is
// later edited or deleted. Alerts are never mutated; reconciliation inserts and
// deletes whole rows.
type Alert struct {
	ID            int64           `json:"id"`
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          ViolationKind   `json:"kind"`
	Reason        string          `json:"reason"`
	CreatedAt     time.Time       `json:"flaggedTimestamp"`
}
