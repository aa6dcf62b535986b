package query

import (
	"context"

	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/sentinelbank/fraud-service/internal/repository"
)

// TransactionQueryService serves transaction reads. Reads never touch the
// write path; they observe whichever committed state the store holds.
type TransactionQueryService struct {
	readRepo *repository.TransactionReadRepository
}

func NewTransactionQueryService(readRepo *repository.TransactionReadRepository) *TransactionQueryService {
	return &TransactionQueryService{readRepo: readRepo}
}

func (s *TransactionQueryService) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionView, error) {
	return s.readRepo.GetByID(ctx, q.TransactionID)
}

// ListTransactions returns transactions matching the filters, newest first.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
	return s.readRepo.List(ctx, q)
}
