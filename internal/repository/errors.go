package repository

import "errors"

// Domain errors surfaced by the storage layer. Handlers map these onto HTTP
// status codes; everything else is treated as an internal failure.
var (
	// ErrTransactionNotFound is returned for operations on an unknown
	// transaction identifier.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateAlert is returned when an alert for the same
	// (transaction, kind) pair already exists. The unique index backs the
	// at-most-one-alert-per-violation invariant even if reconciliation logic
	// regresses.
	ErrDuplicateAlert = errors.New("alert already recorded for this violation")

	// ErrConsistency is returned when a write unit could not be committed
	// atomically after exhausting its serialization retries. Nothing from the
	// unit is visible.
	ErrConsistency = errors.New("could not reconcile transaction and alerts atomically")
)
