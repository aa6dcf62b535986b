package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/middleware"
	"github.com/sentinelbank/fraud-service/internal/models"
)

// SuspiciousActivityQuerier lists raised alerts joined with their transactions.
type SuspiciousActivityQuerier interface {
	ListSuspiciousActivity(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error)
}

type AlertHandler struct {
	queries SuspiciousActivityQuerier
}

type ListAlertsResponse struct {
	Alerts []models.SuspiciousActivityView `json:"alerts"`
}

func NewAlertHandler(queries SuspiciousActivityQuerier) *AlertHandler {
	return &AlertHandler{queries: queries}
}

func (h *AlertHandler) ListAlerts(c *gin.Context) {
	from, ok := parseTimestamp(c.Query("from"))
	if !ok {
		respondBadTimestamp(c, "from")
		return
	}
	to, ok := parseTimestamp(c.Query("to"))
	if !ok {
		respondBadTimestamp(c, "to")
		return
	}

	views, err := h.queries.ListSuspiciousActivity(c.Request.Context(), cqrs.ListAlertsQuery{
		UserID: c.Query("userId"),
		From:   from,
		To:     to,
	})
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	if views == nil {
		views = []models.SuspiciousActivityView{}
	}
	c.JSON(http.StatusOK, ListAlertsResponse{Alerts: views})
}
