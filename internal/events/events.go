package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	TransactionCreated = "transaction.created"
	TransactionUpdated = "transaction.updated"
	TransactionDeleted = "transaction.deleted"

	AlertRaised   = "fraud.alert.raised"
	AlertResolved = "fraud.alert.resolved"
)

// Stream names
const (
	TransactionEventsStream = "transaction.events"
	FraudEventsStream       = "fraud.events"
)

// Base event structure
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TransactionEvent describes any transaction write, including the status the
// write left the row in.
type TransactionEvent struct {
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
}

// AlertRaisedEvent is emitted once per newly detected violation.
type AlertRaisedEvent struct {
	AlertID       int64           `json:"alertId"`
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          string          `json:"kind"`
	Reason        string          `json:"reason"`
}

// AlertResolvedEvent is emitted when reconciliation removes an alert because
// its violation no longer holds.
type AlertResolvedEvent struct {
	AlertID       int64  `json:"alertId"`
	TransactionID string `json:"transactionId"`
	Kind          string `json:"kind"`
}

// DecodeData unmarshals an event's payload into out. After the wire roundtrip
// Data is a generic map, so it is re-marshalled through JSON.
func DecodeData(ev Event, out any) error {
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to re-marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s event data: %w", ev.Type, err)
	}
	return nil
}
