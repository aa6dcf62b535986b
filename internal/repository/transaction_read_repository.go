package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/models"
	viewcache "github.com/sentinelbank/fraud-service/internal/redis"
	"github.com/sirupsen/logrus"
)

const transactionViewKeyPrefix = "transaction:view:"

// TransactionReadRepository handles all read operations for transactions.
// Single-row reads try Redis first and fall back to PostgreSQL; list reads
// always hit PostgreSQL so filters see one consistent snapshot.
type TransactionReadRepository struct {
	db    *sql.DB
	cache *viewcache.ViewCache[models.TransactionView]
}

func NewTransactionReadRepository(db *sql.DB, redisClient *redis.Client, log *logrus.Logger) *TransactionReadRepository {
	return &TransactionReadRepository{
		db:    db,
		cache: viewcache.NewViewCache[models.TransactionView](redisClient, 0, log),
	}
}

// GetByID returns a TransactionView by attempting Redis first, then PostgreSQL.
func (r *TransactionReadRepository) GetByID(ctx context.Context, id string) (*models.TransactionView, error) {
	if view, ok := r.cache.Get(ctx, transactionViewKeyPrefix+id); ok {
		return view, nil
	}

	query := `
		SELECT id, user_id, amount, location, txn_type, txn_time, status, created_at, updated_at
		FROM transactions
		WHERE id = $1
	`
	var view models.TransactionView
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&view.ID, &view.UserID, &view.Amount, &view.Location,
		&view.Type, &view.Timestamp, &view.Status,
		&view.CreatedAt, &view.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction view: %w", err)
	}

	// Warm the cache
	r.CacheTransactionView(ctx, &view)
	return &view, nil
}

// List returns transaction views matching the query filters, newest first.
func (r *TransactionReadRepository) List(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
	query := `
		SELECT id, user_id, amount, location, txn_type, txn_time, status, created_at, updated_at
		FROM transactions
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2::timestamptz IS NULL OR txn_time >= $2)
		  AND ($3::timestamptz IS NULL OR txn_time <= $3)
		ORDER BY txn_time DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, q.UserID, nullTime(q.From), nullTime(q.To))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var views []models.TransactionView
	for rows.Next() {
		var view models.TransactionView
		if err := rows.Scan(
			&view.ID, &view.UserID, &view.Amount, &view.Location,
			&view.Type, &view.Timestamp, &view.Status,
			&view.CreatedAt, &view.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction view: %w", err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

// CacheTransactionView stores the read model for a transaction in Redis.
// Called by the command service immediately after a committed write.
func (r *TransactionReadRepository) CacheTransactionView(ctx context.Context, view *models.TransactionView) {
	r.cache.Set(ctx, transactionViewKeyPrefix+view.ID, view)
}

// DropTransactionView removes a transaction's read model from Redis.
func (r *TransactionReadRepository) DropTransactionView(ctx context.Context, id string) {
	r.cache.Delete(ctx, transactionViewKeyPrefix+id)
}
