package cqrs

import "time"

// ---------- Transaction queries ----------

// GetTransactionQuery fetches a single transaction.
type GetTransactionQuery struct {
	TransactionID string
}

// ListTransactionsQuery fetches transactions, newest first. Zero-value fields
// leave that filter open.
type ListTransactionsQuery struct {
	UserID string
	From   time.Time
	To     time.Time
}

// ---------- Alert queries ----------

// ListAlertsQuery fetches the suspicious-activity view, newest alert first.
// Zero-value fields leave that filter open. From/To bound the alert creation
// time, not the transaction timestamp.
type ListAlertsQuery struct {
	UserID string
	From   time.Time
	To     time.Time
}
