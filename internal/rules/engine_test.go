package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func txn(user string, amount string, at time.Time) models.Transaction {
	return models.Transaction{
		ID:        "txn-" + user + at.Format("150405"),
		UserID:    user,
		Amount:    decimal.RequireFromString(amount),
		Location:  "Delhi",
		Type:      models.TypeDebit,
		Timestamp: at,
	}
}

func hasKind(kinds []models.ViolationKind, want models.ViolationKind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func TestHighAmountRule(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		name     string
		amount   string
		violated bool
	}{
		{"well below threshold", "500", false},
		{"exactly at threshold passes", "10000", false},
		{"just above threshold", "10000.01", true},
		{"well above threshold", "15000", true},
		{"zero amount", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := txn("U1", tt.amount, t0)
			got := e.Evaluate(candidate, []models.Transaction{candidate})
			if hasKind(got, models.ViolationHighAmount) != tt.violated {
				t.Errorf("amount=%s: high-amount violated=%v, want %v", tt.amount, !tt.violated, tt.violated)
			}
		})
	}
}

func TestHighAmountThresholdConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HighAmountThreshold = decimal.NewFromInt(100)
	e := NewEngine(cfg)

	candidate := txn("U1", "101", t0)
	if !hasKind(e.Evaluate(candidate, nil), models.ViolationHighAmount) {
		t.Error("101 should violate a 100 threshold")
	}
	candidate = txn("U1", "100", t0)
	if hasKind(e.Evaluate(candidate, nil), models.ViolationHighAmount) {
		t.Error("100 should not violate a 100 threshold")
	}
}

func TestRapidTransactionRule(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Five earlier transactions at 0s, 60s, 120s, 180s, 240s.
	var history []models.Transaction
	for i := 0; i < 5; i++ {
		history = append(history, txn("U1", "100", t0.Add(time.Duration(i)*time.Minute)))
	}

	tests := []struct {
		name     string
		at       time.Time
		violated bool
	}{
		{"sixth inside the window", t0.Add(290 * time.Second), true},
		{"sixth exactly five minutes after the first", t0.Add(5 * time.Minute), true},
		{"sixth outside the window", t0.Add(6 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := txn("U1", "100", tt.at)
			got := e.Evaluate(candidate, append(history, candidate))
			if hasKind(got, models.ViolationRapidTransactions) != tt.violated {
				t.Errorf("at=%s: rapid violated=%v, want %v", tt.at, !tt.violated, tt.violated)
			}
		})
	}
}

func TestRapidTransactionFifthIsNotFlagged(t *testing.T) {
	e := NewEngine(DefaultConfig())

	var history []models.Transaction
	for i := 0; i < 4; i++ {
		history = append(history, txn("U1", "100", t0.Add(time.Duration(i)*time.Minute)))
	}
	candidate := txn("U1", "100", t0.Add(290*time.Second))
	if hasKind(e.Evaluate(candidate, append(history, candidate)), models.ViolationRapidTransactions) {
		t.Error("fifth transaction in the window should not be flagged")
	}
}

func TestRapidTransactionIdenticalTimestampsAllCount(t *testing.T) {
	e := NewEngine(DefaultConfig())

	var history []models.Transaction
	for i := 0; i < 5; i++ {
		history = append(history, txn("U1", "100", t0))
	}
	candidate := txn("U1", "100", t0)
	if !hasKind(e.Evaluate(candidate, append(history, candidate)), models.ViolationRapidTransactions) {
		t.Error("six transactions sharing one timestamp should trip the rapid rule")
	}
}

func TestRapidTransactionIgnoresOtherUsers(t *testing.T) {
	e := NewEngine(DefaultConfig())

	var history []models.Transaction
	for i := 0; i < 8; i++ {
		history = append(history, txn("U2", "100", t0))
	}
	candidate := txn("U1", "100", t0)
	if hasKind(e.Evaluate(candidate, append(history, candidate)), models.ViolationRapidTransactions) {
		t.Error("another user's burst must not flag this user's transaction")
	}
}

func TestEvaluateCanViolateBothRules(t *testing.T) {
	e := NewEngine(DefaultConfig())

	var history []models.Transaction
	for i := 0; i < 5; i++ {
		history = append(history, txn("U1", "100", t0))
	}
	candidate := txn("U1", "15000", t0)
	got := e.Evaluate(candidate, append(history, candidate))
	if len(got) != 2 {
		t.Fatalf("expected both rules violated, got %v", got)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := NewEngine(DefaultConfig())

	candidate := txn("U1", "15000", t0)
	history := []models.Transaction{candidate}
	first := e.Evaluate(candidate, history)
	second := e.Evaluate(candidate, history)
	if len(first) != len(second) {
		t.Fatalf("verdict changed between runs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("verdict changed between runs: %v vs %v", first, second)
		}
	}
}

func TestReason(t *testing.T) {
	e := NewEngine(DefaultConfig())

	candidate := txn("U1", "15000", t0)
	reason := e.Reason(models.ViolationHighAmount, candidate, nil)
	if !strings.Contains(reason, "15000.00") || !strings.Contains(reason, "10000.00") {
		t.Errorf("high-amount reason should name both amounts, got %q", reason)
	}

	var history []models.Transaction
	for i := 0; i < 6; i++ {
		history = append(history, txn("U1", "100", t0))
	}
	reason = e.Reason(models.ViolationRapidTransactions, history[5], history)
	if !strings.Contains(reason, "6 transactions") {
		t.Errorf("rapid reason should carry the window count, got %q", reason)
	}
}
