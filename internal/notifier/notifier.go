package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sentinelbank/fraud-service/internal/events"
	"github.com/sirupsen/logrus"
)

type Config struct {
	SMTPHost   string
	SMTPPort   int
	Username   string
	Password   string
	Sender     string
	Recipients []string
}

// Notifier mails fraud alerts to the configured compliance recipients.
// It consumes the fraud event stream and only reacts to raised alerts;
// resolved alerts are intentionally silent.
type Notifier struct {
	config Config
	log    *logrus.Logger
	send   func(e *email.Email) error
}

func New(config Config, log *logrus.Logger) *Notifier {
	n := &Notifier{config: config, log: log}
	n.send = func(e *email.Email) error {
		addr := fmt.Sprintf("%s:%d", config.SMTPHost, config.SMTPPort)
		auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPHost)
		return e.Send(addr, auth)
	}
	return n
}

// Handle processes one event from the fraud stream. Returning nil for
// uninteresting event types lets the subscriber ACK them.
func (n *Notifier) Handle(ctx context.Context, ev events.Event) error {
	if ev.Type != events.AlertRaised {
		return nil
	}
	if len(n.config.Recipients) == 0 {
		return nil
	}

	var alert events.AlertRaisedEvent
	if err := events.DecodeData(ev, &alert); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.config.Sender
	e.To = n.config.Recipients
	e.Subject = buildAlertSubject(alert)
	e.Text = []byte(buildAlertBody(alert))

	if err := n.send(e); err != nil {
		return fmt.Errorf("failed to send alert mail for %s: %w", alert.TransactionID, err)
	}

	n.log.WithFields(logrus.Fields{
		"transactionId": alert.TransactionID,
		"kind":          alert.Kind,
	}).Info("Alert notification sent")
	return nil
}

func buildAlertSubject(alert events.AlertRaisedEvent) string {
	return fmt.Sprintf("[Fraud Alert] %s on transaction %s", alert.Kind, alert.TransactionID)
}

func buildAlertBody(alert events.AlertRaisedEvent) string {
	var b strings.Builder
	b.WriteString("A transaction was flagged by the fraud detection service.\n\n")
	fmt.Fprintf(&b, "Transaction: %s\n", alert.TransactionID)
	fmt.Fprintf(&b, "User:        %s\n", alert.UserID)
	fmt.Fprintf(&b, "Amount:      %s\n", alert.Amount)
	fmt.Fprintf(&b, "Rule:        %s\n", alert.Kind)
	fmt.Fprintf(&b, "Reason:      %s\n", alert.Reason)
	b.WriteString("\nReview it in the suspicious activity dashboard.\n")
	return b.String()
}
