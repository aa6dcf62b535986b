package command

import (
	"context"
	"time"

	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/events"
	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/sentinelbank/fraud-service/internal/repository"
	"github.com/sentinelbank/fraud-service/internal/rules"
	"github.com/sentinelbank/fraud-service/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ViewCacher refreshes read-side projections after a committed write.
type ViewCacher interface {
	CacheTransactionView(ctx context.Context, view *models.TransactionView)
	DropTransactionView(ctx context.Context, id string)
}

// EventPublisher emits domain events after a committed write.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// TransactionCommandService owns every transaction write. Each operation runs
// as one atomic unit: persist the transaction, evaluate the fraud rules over
// the user's persisted history, and reconcile the alert log and status flag.
// Units for the same user are serialized; different users proceed in parallel.
type TransactionCommandService struct {
	store     repository.Store
	rules     *rules.Engine
	cache     ViewCacher
	publisher EventPublisher
	log       *logrus.Logger
	locks     *userLocks
}

func NewTransactionCommandService(
	store repository.Store,
	engine *rules.Engine,
	cache ViewCacher,
	publisher EventPublisher,
	log *logrus.Logger,
) *TransactionCommandService {
	return &TransactionCommandService{
		store:     store,
		rules:     engine,
		cache:     cache,
		publisher: publisher,
		log:       log,
		locks:     newUserLocks(),
	}
}

// CreateTransaction validates and persists a new transaction, runs fraud
// detection over it and returns the stored row with the violation kinds it
// newly triggered. A flagged transaction is a successful outcome, not an
// error.
func (s *TransactionCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, []models.ViolationKind, error) {
	if err := validateAttributes(cmd.UserID, cmd.Amount, cmd.Location, cmd.Type); err != nil {
		return nil, nil, err
	}
	ts := cmd.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	txn := &models.Transaction{
		ID:        utils.GenerateID("txn"),
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		Location:  cmd.Location,
		Type:      cmd.Type,
		Timestamp: ts,
		Status:    models.StatusOK,
	}

	unlock := s.locks.lock(cmd.UserID)
	defer unlock()

	var raised []models.Alert
	err := s.store.WithinTx(ctx, func(tx repository.TxStore) error {
		if err := tx.InsertTransaction(txn); err != nil {
			return err
		}
		var err error
		raised, _, err = s.reconcile(tx, txn)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterWrite(ctx, events.TransactionCreated, txn, raised, nil)
	return txn, alertKinds(raised), nil
}

// UpdateTransaction rewrites a transaction's mutable attributes and
// re-reconciles: alerts for rules newly violated are created, alerts for rules
// no longer violated are removed, and the status flag is recomputed.
// Re-submitting identical attributes changes nothing.
func (s *TransactionCommandService) UpdateTransaction(ctx context.Context, cmd cqrs.UpdateTransactionCommand) (*models.Transaction, []models.ViolationKind, error) {
	existing, err := s.store.GetTransaction(ctx, cmd.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	if err := validateAttributes(existing.UserID, cmd.Amount, cmd.Location, cmd.Type); err != nil {
		return nil, nil, err
	}

	unlock := s.locks.lock(existing.UserID)
	defer unlock()

	var txn *models.Transaction
	var raised, resolved []models.Alert
	err = s.store.WithinTx(ctx, func(tx repository.TxStore) error {
		cur, err := tx.GetTransaction(cmd.TransactionID)
		if err != nil {
			return err
		}
		cur.Amount = cmd.Amount
		cur.Location = cmd.Location
		cur.Type = cmd.Type
		if !cmd.Timestamp.IsZero() {
			cur.Timestamp = cmd.Timestamp
		}
		if err := tx.UpdateTransaction(cur); err != nil {
			return err
		}
		raised, resolved, err = s.reconcile(tx, cur)
		txn = cur
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterWrite(ctx, events.TransactionUpdated, txn, raised, resolved)
	return txn, alertKinds(raised), nil
}

// DeleteTransaction removes a transaction together with its alerts. Alert
// removal cascades: the alert log tracks live violations, not deleted rows.
func (s *TransactionCommandService) DeleteTransaction(ctx context.Context, cmd cqrs.DeleteTransactionCommand) error {
	existing, err := s.store.GetTransaction(ctx, cmd.TransactionID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(existing.UserID)
	defer unlock()

	err = s.store.WithinTx(ctx, func(tx repository.TxStore) error {
		if err := tx.DeleteAlertsForTransaction(cmd.TransactionID); err != nil {
			return err
		}
		return tx.DeleteTransaction(cmd.TransactionID)
	})
	if err != nil {
		return err
	}

	s.cache.DropTransactionView(ctx, cmd.TransactionID)
	s.publish(ctx, events.TransactionEventsStream, events.TransactionDeleted, events.TransactionEvent{
		TransactionID: existing.ID,
		UserID:        existing.UserID,
		Amount:        existing.Amount,
		Type:          existing.Type,
		Status:        existing.Status,
	})
	return nil
}

// Reconcile re-runs rule evaluation and alert reconciliation for a stored
// transaction without changing its attributes. The audit sweep uses it to
// repair any status/alert drift it finds.
func (s *TransactionCommandService) Reconcile(ctx context.Context, transactionID string) (string, error) {
	existing, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return "", err
	}

	unlock := s.locks.lock(existing.UserID)
	defer unlock()

	var txn *models.Transaction
	var raised, resolved []models.Alert
	err = s.store.WithinTx(ctx, func(tx repository.TxStore) error {
		cur, err := tx.GetTransaction(transactionID)
		if err != nil {
			return err
		}
		raised, resolved, err = s.reconcile(tx, cur)
		txn = cur
		return err
	})
	if err != nil {
		return "", err
	}

	s.afterWrite(ctx, events.TransactionUpdated, txn, raised, resolved)
	return txn.Status, nil
}

// reconcile runs inside a write unit. It evaluates the rules against the
// persisted state, diffs the verdict against the existing alerts for the
// transaction, applies the difference and recomputes the status flag. It
// returns the alerts it created and the alerts it removed.
func (s *TransactionCommandService) reconcile(tx repository.TxStore, txn *models.Transaction) (raised, resolved []models.Alert, err error) {
	from := txn.Timestamp.Add(-s.rules.Window())
	history, err := tx.ListUserTransactionsBetween(txn.UserID, from, txn.Timestamp)
	if err != nil {
		return nil, nil, err
	}
	violated := s.rules.Evaluate(*txn, history)

	existing, err := tx.ListAlertsForTransaction(txn.ID)
	if err != nil {
		return nil, nil, err
	}

	violatedSet := make(map[models.ViolationKind]bool, len(violated))
	for _, kind := range violated {
		violatedSet[kind] = true
	}
	existingSet := make(map[models.ViolationKind]bool, len(existing))
	for _, a := range existing {
		existingSet[a.Kind] = true
	}

	for _, kind := range violated {
		if existingSet[kind] {
			continue
		}
		alert := models.Alert{
			TransactionID: txn.ID,
			UserID:        txn.UserID,
			Amount:        txn.Amount,
			Kind:          kind,
			Reason:        s.rules.Reason(kind, *txn, history),
		}
		if err := tx.InsertAlert(&alert); err != nil {
			return nil, nil, err
		}
		raised = append(raised, alert)
	}
	for _, a := range existing {
		if violatedSet[a.Kind] {
			continue
		}
		if err := tx.DeleteAlert(a.ID); err != nil {
			return nil, nil, err
		}
		resolved = append(resolved, a)
	}

	status := models.StatusOK
	if len(violated) > 0 {
		status = models.StatusFlagged
	}
	if status != txn.Status {
		if err := tx.SetTransactionStatus(txn.ID, status); err != nil {
			return nil, nil, err
		}
		txn.Status = status
	}
	return raised, resolved, nil
}

// afterWrite refreshes the read model and emits events for a committed unit.
// Both are best effort: readers fall back to PostgreSQL and the audit sweep
// covers missed projections, so failures are logged, not returned.
func (s *TransactionCommandService) afterWrite(ctx context.Context, eventType string, txn *models.Transaction, raised, resolved []models.Alert) {
	s.cache.CacheTransactionView(ctx, txnToView(txn))

	s.publish(ctx, events.TransactionEventsStream, eventType, events.TransactionEvent{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Amount:        txn.Amount,
		Type:          txn.Type,
		Status:        txn.Status,
	})
	for _, a := range raised {
		s.publish(ctx, events.FraudEventsStream, events.AlertRaised, events.AlertRaisedEvent{
			AlertID:       a.ID,
			TransactionID: a.TransactionID,
			UserID:        a.UserID,
			Amount:        a.Amount,
			Kind:          string(a.Kind),
			Reason:        a.Reason,
		})
	}
	for _, a := range resolved {
		s.publish(ctx, events.FraudEventsStream, events.AlertResolved, events.AlertResolvedEvent{
			AlertID:       a.ID,
			TransactionID: a.TransactionID,
			Kind:          string(a.Kind),
		})
	}
}

func (s *TransactionCommandService) publish(ctx context.Context, stream, eventType string, data any) {
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		s.log.WithError(err).Warnf("failed to publish %s event", eventType)
	}
}

func validateAttributes(userID string, amount decimal.Decimal, location, txnType string) error {
	if userID == "" {
		return &ValidationError{Field: "userId", Message: "must not be empty"}
	}
	if amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	if location == "" {
		return &ValidationError{Field: "location", Message: "must not be empty"}
	}
	if txnType != models.TypeCredit && txnType != models.TypeDebit {
		return &ValidationError{Field: "type", Message: "must be Credit or Debit"}
	}
	return nil
}

func alertKinds(alerts []models.Alert) []models.ViolationKind {
	kinds := make([]models.ViolationKind, 0, len(alerts))
	for _, a := range alerts {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

// txnToView converts the write model to a read view model.
func txnToView(t *models.Transaction) *models.TransactionView {
	return &models.TransactionView{
		ID:        t.ID,
		UserID:    t.UserID,
		Amount:    t.Amount,
		Location:  t.Location,
		Type:      t.Type,
		Timestamp: t.Timestamp,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
