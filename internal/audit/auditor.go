package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scanner finds transactions whose status disagrees with their alerts.
type Scanner interface {
	ListInconsistentTransactionIDs(ctx context.Context) ([]string, error)
}

// Reconciler repairs a single transaction and reports what it changed.
type Reconciler interface {
	Reconcile(ctx context.Context, transactionID string) (string, error)
}

// Auditor periodically sweeps the store for drift between transaction status
// and alerts and reconciles whatever it finds. Drift should only appear after
// operator intervention or a partial restore, so a quiet sweep is the normal
// case.
type Auditor struct {
	scanner    Scanner
	reconciler Reconciler
	log        *logrus.Logger
	cron       *cron.Cron
	schedule   string
	timeout    time.Duration
}

func NewAuditor(scanner Scanner, reconciler Reconciler, schedule string, log *logrus.Logger) *Auditor {
	return &Auditor{
		scanner:    scanner,
		reconciler: reconciler,
		log:        log,
		cron:       cron.New(),
		schedule:   schedule,
		timeout:    time.Minute,
	}
}

func (a *Auditor) Start() error {
	_, err := a.cron.AddFunc(a.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	a.cron.Start()
	a.log.WithField("schedule", a.schedule).Info("Consistency audit started")
	return nil
}

func (a *Auditor) Stop() {
	<-a.cron.Stop().Done()
}

// Sweep runs one full audit pass. It keeps going past individual failures so
// one stuck transaction cannot block the rest of the repair.
func (a *Auditor) Sweep(ctx context.Context) {
	ids, err := a.scanner.ListInconsistentTransactionIDs(ctx)
	if err != nil {
		a.log.WithError(err).Error("Audit scan failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	a.log.WithField("count", len(ids)).Warn("Audit found inconsistent transactions")
	for _, id := range ids {
		action, err := a.reconciler.Reconcile(ctx, id)
		if err != nil {
			a.log.WithError(err).WithField("transactionId", id).Error("Audit repair failed")
			continue
		}
		a.log.WithFields(logrus.Fields{
			"transactionId": id,
			"action":        action,
		}).Info("Audit repaired transaction")
	}
}
