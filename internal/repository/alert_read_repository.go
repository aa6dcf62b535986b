package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/shopspring/decimal"
)

// AlertReadRepository serves the suspicious-activity view: every alert joined
// to the current state of its transaction. The join is an outer join so an
// alert whose transaction has disappeared still surfaces, with Transaction nil.
type AlertReadRepository struct {
	db *sql.DB
}

func NewAlertReadRepository(db *sql.DB) *AlertReadRepository {
	return &AlertReadRepository{db: db}
}

// ListSuspiciousActivity returns alerts matching the query filters, newest
// alert first. From/To bound the alert creation time.
func (r *AlertReadRepository) ListSuspiciousActivity(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error) {
	query := `
		SELECT a.id, a.transaction_id, a.user_id, a.amount, a.kind, a.reason, a.created_at,
		       t.id, t.user_id, t.amount, t.location, t.txn_type, t.txn_time, t.status, t.created_at, t.updated_at
		FROM alerts a
		LEFT JOIN transactions t ON t.id = a.transaction_id
		WHERE ($1 = '' OR a.user_id = $1)
		  AND ($2::timestamptz IS NULL OR a.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR a.created_at <= $3)
		ORDER BY a.created_at DESC, a.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, q.UserID, nullTime(q.From), nullTime(q.To))
	if err != nil {
		return nil, fmt.Errorf("failed to list suspicious activity: %w", err)
	}
	defer rows.Close()

	var views []models.SuspiciousActivityView
	for rows.Next() {
		var v models.SuspiciousActivityView
		var (
			txnID     sql.NullString
			txnUser   sql.NullString
			txnAmount decimal.NullDecimal
			location  sql.NullString
			txnType   sql.NullString
			txnTime   sql.NullTime
			status    sql.NullString
			createdAt sql.NullTime
			updatedAt sql.NullTime
		)
		if err := rows.Scan(
			&v.Alert.ID, &v.Alert.TransactionID, &v.Alert.UserID, &v.Alert.Amount,
			&v.Alert.Kind, &v.Alert.Reason, &v.Alert.CreatedAt,
			&txnID, &txnUser, &txnAmount, &location, &txnType, &txnTime, &status, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan suspicious activity row: %w", err)
		}
		if txnID.Valid {
			v.Transaction = &models.TransactionView{
				ID:        txnID.String,
				UserID:    txnUser.String,
				Amount:    txnAmount.Decimal,
				Location:  location.String,
				Type:      txnType.String,
				Timestamp: txnTime.Time,
				Status:    status.String,
				CreatedAt: createdAt.Time,
				UpdatedAt: updatedAt.Time,
			}
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// nullTime maps a zero time.Time onto SQL NULL so optional range filters can
// be expressed as single parameters.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
