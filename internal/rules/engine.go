// Package rules holds the fraud-detection rules as pure functions over a
// transaction and its recent history. The engine never touches storage, so the
// same persisted state always yields the same verdict and re-evaluation after
// an update is safe.
package rules

import (
	"fmt"
	"time"

	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/shopspring/decimal"
)

// Config holds the tunable thresholds for the fraud rules.
type Config struct {
	// HighAmountThreshold is the amount strictly above which a transaction is
	// flagged. An amount exactly at the threshold passes.
	HighAmountThreshold decimal.Decimal

	// RapidWindow is the length of the rolling window used by the
	// rapid-transaction rule.
	RapidWindow time.Duration

	// RapidMaxCount is the number of transactions a user may have inside the
	// window before further ones are flagged.
	RapidMaxCount int
}

func DefaultConfig() Config {
	return Config{
		HighAmountThreshold: decimal.NewFromInt(10000),
		RapidWindow:         5 * time.Minute,
		RapidMaxCount:       5,
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Window returns the rolling window length; callers use it to bound the
// history query they feed into Evaluate.
func (e *Engine) Window() time.Duration {
	return e.cfg.RapidWindow
}

// Evaluate returns the set of rules the candidate transaction violates, given
// the user's transaction history around the candidate's timestamp. If the
// candidate has been persisted, history must include it.
func (e *Engine) Evaluate(txn models.Transaction, history []models.Transaction) []models.ViolationKind {
	var violated []models.ViolationKind
	if e.highAmount(txn) {
		violated = append(violated, models.ViolationHighAmount)
	}
	if e.rapidTransactions(txn, history) {
		violated = append(violated, models.ViolationRapidTransactions)
	}
	return violated
}

func (e *Engine) highAmount(txn models.Transaction) bool {
	return txn.Amount.GreaterThan(e.cfg.HighAmountThreshold)
}

func (e *Engine) rapidTransactions(txn models.Transaction, history []models.Transaction) bool {
	return e.CountInWindow(txn, history) > e.cfg.RapidMaxCount
}

// CountInWindow counts the user's transactions with timestamps inside
// [t-window, t], both endpoints inclusive, where t is the candidate's own
// timestamp. Anchoring on the candidate rather than wall-clock time keeps
// back-dated and re-ordered rows counting consistently; identical timestamps
// all count.
func (e *Engine) CountInWindow(txn models.Transaction, history []models.Transaction) int {
	from := txn.Timestamp.Add(-e.cfg.RapidWindow)
	n := 0
	for _, h := range history {
		if h.UserID != txn.UserID {
			continue
		}
		if !h.Timestamp.Before(from) && !h.Timestamp.After(txn.Timestamp) {
			n++
		}
	}
	return n
}

// Reason renders the human-readable explanation recorded on an alert.
func (e *Engine) Reason(kind models.ViolationKind, txn models.Transaction, history []models.Transaction) string {
	switch kind {
	case models.ViolationHighAmount:
		return fmt.Sprintf("High amount transaction: %s exceeds %s limit",
			txn.Amount.StringFixed(2), e.cfg.HighAmountThreshold.StringFixed(2))
	case models.ViolationRapidTransactions:
		return fmt.Sprintf("Rapid transactions detected: %d transactions within %s",
			e.CountInWindow(txn, history), e.cfg.RapidWindow)
	}
	return string(kind)
}
