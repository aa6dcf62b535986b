package command

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/sentinelbank/fraud-service/internal/repository"
)

// memStore is an in-memory repository.Store. WithinTx runs against a clone of
// the state and swaps it in only on success, so a failed unit leaves nothing
// behind, matching the rollback contract of the real store.
type memStore struct {
	mu          sync.Mutex
	txns        map[string]models.Transaction
	alerts      map[int64]models.Alert
	nextAlertID int64

	failNextInsertAlert bool
}

func newMemStore() *memStore {
	return &memStore{
		txns:   make(map[string]models.Transaction),
		alerts: make(map[int64]models.Alert),
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repository.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		parent:      m,
		txns:        make(map[string]models.Transaction, len(m.txns)),
		alerts:      make(map[int64]models.Alert, len(m.alerts)),
		nextAlertID: m.nextAlertID,
	}
	for k, v := range m.txns {
		tx.txns[k] = v
	}
	for k, v := range m.alerts {
		tx.alerts[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	m.txns = tx.txns
	m.alerts = tx.alerts
	m.nextAlertID = tx.nextAlertID
	return nil
}

func (m *memStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	return &txn, nil
}

func (m *memStore) alertsFor(id string) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if a.TransactionID == id {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) counts() (txns, alerts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txns), len(m.alerts)
}

type memTx struct {
	parent      *memStore
	txns        map[string]models.Transaction
	alerts      map[int64]models.Alert
	nextAlertID int64
}

func (t *memTx) InsertTransaction(txn *models.Transaction) error {
	txn.CreatedAt = time.Now().UTC()
	txn.UpdatedAt = txn.CreatedAt
	t.txns[txn.ID] = *txn
	return nil
}

func (t *memTx) UpdateTransaction(txn *models.Transaction) error {
	if _, ok := t.txns[txn.ID]; !ok {
		return repository.ErrTransactionNotFound
	}
	txn.UpdatedAt = time.Now().UTC()
	t.txns[txn.ID] = *txn
	return nil
}

func (t *memTx) DeleteTransaction(id string) error {
	if _, ok := t.txns[id]; !ok {
		return repository.ErrTransactionNotFound
	}
	delete(t.txns, id)
	return nil
}

func (t *memTx) GetTransaction(id string) (*models.Transaction, error) {
	txn, ok := t.txns[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	return &txn, nil
}

func (t *memTx) SetTransactionStatus(id, status string) error {
	txn, ok := t.txns[id]
	if !ok {
		return repository.ErrTransactionNotFound
	}
	txn.Status = status
	t.txns[id] = txn
	return nil
}

func (t *memTx) ListUserTransactionsBetween(userID string, from, to time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range t.txns {
		if txn.UserID != userID {
			continue
		}
		if txn.Timestamp.Before(from) || txn.Timestamp.After(to) {
			continue
		}
		out = append(out, txn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (t *memTx) InsertAlert(alert *models.Alert) error {
	if t.parent.failNextInsertAlert {
		t.parent.failNextInsertAlert = false
		return errors.New("injected alert insert failure")
	}
	for _, a := range t.alerts {
		if a.TransactionID == alert.TransactionID && a.Kind == alert.Kind {
			return repository.ErrDuplicateAlert
		}
	}
	t.nextAlertID++
	alert.ID = t.nextAlertID
	alert.CreatedAt = time.Now().UTC()
	t.alerts[alert.ID] = *alert
	return nil
}

func (t *memTx) DeleteAlert(id int64) error {
	delete(t.alerts, id)
	return nil
}

func (t *memTx) DeleteAlertsForTransaction(transactionID string) error {
	for id, a := range t.alerts {
		if a.TransactionID == transactionID {
			delete(t.alerts, id)
		}
	}
	return nil
}

func (t *memTx) ListAlertsForTransaction(transactionID string) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range t.alerts {
		if a.TransactionID == transactionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- no-op read model and capturing publisher ----

type noopCache struct{}

func (noopCache) CacheTransactionView(ctx context.Context, view *models.TransactionView) {}
func (noopCache) DropTransactionView(ctx context.Context, id string)                     {}

type publishedEvent struct {
	Stream string
	Type   string
	Data   any
}

type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturePublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Stream: stream, Type: eventType, Data: data})
	return nil
}

func (p *capturePublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
