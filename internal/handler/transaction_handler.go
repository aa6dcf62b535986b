package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentinelbank/fraud-service/internal/command"
	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/middleware"
	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/sentinelbank/fraud-service/internal/repository"
	"github.com/shopspring/decimal"
)

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, []models.ViolationKind, error)
	UpdateTransaction(ctx context.Context, cmd cqrs.UpdateTransactionCommand) (*models.Transaction, []models.ViolationKind, error)
	DeleteTransaction(ctx context.Context, cmd cqrs.DeleteTransactionCommand) error
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionView, error)
	ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

type CreateTransactionRequest struct {
	UserID    string          `json:"userId" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Location  string          `json:"location" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=Credit Debit"`
	Timestamp string          `json:"timestamp"` // RFC 3339; empty defaults to now
}

type UpdateTransactionRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Location  string          `json:"location" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=Credit Debit"`
	Timestamp string          `json:"timestamp"` // RFC 3339; empty keeps the stored one
}

// TransactionWriteResponse reports the stored transaction alongside the
// violation kinds the write newly triggered, so callers can notify the user.
type TransactionWriteResponse struct {
	Transaction *models.Transaction    `json:"transaction"`
	Violations  []models.ViolationKind `json:"violations"`
}

type ListTransactionsResponse struct {
	Transactions []models.TransactionView `json:"transactions"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	ts, ok := parseTimestamp(req.Timestamp)
	if !ok {
		respondBadTimestamp(c, "timestamp")
		return
	}

	txn, violations, err := h.commands.CreateTransaction(c.Request.Context(), cqrs.CreateTransactionCommand{
		UserID:    req.UserID,
		Amount:    req.Amount,
		Location:  req.Location,
		Type:      req.Type,
		Timestamp: ts,
	})
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusCreated, writeResponse(txn, violations))
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	transactionID := c.Param("transactionId")

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	ts, ok := parseTimestamp(req.Timestamp)
	if !ok {
		respondBadTimestamp(c, "timestamp")
		return
	}

	txn, violations, err := h.commands.UpdateTransaction(c.Request.Context(), cqrs.UpdateTransactionCommand{
		TransactionID: transactionID,
		Amount:        req.Amount,
		Location:      req.Location,
		Type:          req.Type,
		Timestamp:     ts,
	})
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, writeResponse(txn, violations))
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	transactionID := c.Param("transactionId")

	err := h.commands.DeleteTransaction(c.Request.Context(), cqrs.DeleteTransactionCommand{
		TransactionID: transactionID,
	})
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID := c.Param("transactionId")

	view, err := h.queries.GetTransaction(c.Request.Context(), cqrs.GetTransactionQuery{
		TransactionID: transactionID,
	})
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
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

	views, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		UserID: c.Query("userId"),
		From:   from,
		To:     to,
	})
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if views == nil {
		views = []models.TransactionView{}
	}
	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: views})
}

func writeResponse(txn *models.Transaction, violations []models.ViolationKind) TransactionWriteResponse {
	if violations == nil {
		violations = []models.ViolationKind{}
	}
	return TransactionWriteResponse{Transaction: txn, Violations: violations}
}

// parseTimestamp accepts an RFC 3339 timestamp or the empty string, which
// maps onto the zero time.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func respondBadTimestamp(c *gin.Context, field string) {
	middleware.RespondWithValidationError(c, []middleware.ValidationError{{
		Field:   field,
		Message: "Must be an RFC 3339 timestamp",
		Type:    "datetime",
	}})
}

func respondCommandError(c *gin.Context, err error) {
	var vErr *command.ValidationError
	switch {
	case errors.As(err, &vErr):
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   vErr.Field,
			Message: vErr.Message,
			Type:    "invalid",
		}})
	case errors.Is(err, repository.ErrTransactionNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, repository.ErrConsistency):
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Could not record the write consistently, please retry")
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to process transaction")
	}
}
