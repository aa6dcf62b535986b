package query

import (
	"context"

	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/sentinelbank/fraud-service/internal/repository"
)

// AlertQueryService serves the suspicious-activity view.
type AlertQueryService struct {
	readRepo *repository.AlertReadRepository
}

func NewAlertQueryService(readRepo *repository.AlertReadRepository) *AlertQueryService {
	return &AlertQueryService{readRepo: readRepo}
}

// ListSuspiciousActivity returns every alert matching the filters joined with
// its transaction's current attributes, newest alert first.
func (s *AlertQueryService) ListSuspiciousActivity(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error) {
	return s.readRepo.ListSuspiciousActivity(ctx, q)
}
