package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentinelbank/fraud-service/internal/cqrs"
	"github.com/sentinelbank/fraud-service/internal/models"
	"github.com/shopspring/decimal"
)

type mockAlertQuerier struct {
	listFn func(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error)
}

func (m *mockAlertQuerier) ListSuspiciousActivity(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error) {
	return m.listFn(ctx, q)
}

func TestListAlerts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sample := models.SuspiciousActivityView{
		Alert: models.Alert{
			ID:            7,
			TransactionID: "txn-abc123",
			UserID:        "user-1",
			Amount:        decimal.NewFromInt(12500),
			Kind:          models.ViolationHighAmount,
			Reason:        "High amount transaction: 12500 exceeds 10000 limit",
			CreatedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Transaction: &models.TransactionView{ID: "txn-abc123", UserID: "user-1"},
	}

	tests := []struct {
		name           string
		url            string
		listFn         func(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error)
		expectedStatus int
		checkResponse  func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "returns alerts with joined transactions",
			url:  "/v1/alerts",
			listFn: func(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error) {
				return []models.SuspiciousActivityView{sample}, nil
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp ListAlertsResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if len(resp.Alerts) != 1 {
					t.Fatalf("expected 1 alert, got %d", len(resp.Alerts))
				}
				if resp.Alerts[0].Transaction == nil {
					t.Error("expected joined transaction to survive the round trip")
				}
			},
		},
		{
			name: "orphaned alert keeps null transaction",
			url:  "/v1/alerts",
			listFn: func(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error) {
				orphan := sample
				orphan.Transaction = nil
				return []models.SuspiciousActivityView{orphan}, nil
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if !bytes.Contains(rec.Body.Bytes(), []byte(`"transaction":null`)) {
					t.Errorf("expected null transaction for orphaned alert, got %s", rec.Body.String())
				}
			},
		},
		{
			name: "empty result is an empty array",
			url:  "/v1/alerts?userId=user-9",
			listFn: func(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error) {
				if q.UserID != "user-9" {
					t.Errorf("expected userId filter, got %q", q.UserID)
				}
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if !bytes.Contains(rec.Body.Bytes(), []byte(`"alerts":[]`)) {
					t.Errorf("expected empty alerts array, got %s", rec.Body.String())
				}
			},
		},
		{
			name:           "bad time filter",
			url:            "/v1/alerts?to=tomorrow",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "query failure",
			url:  "/v1/alerts",
			listFn: func(ctx context.Context, q cqrs.ListAlertsQuery) ([]models.SuspiciousActivityView, error) {
				return nil, errors.New("connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAlertHandler(&mockAlertQuerier{listFn: tt.listFn})

			router := gin.New()
			router.GET("/v1/alerts", h.ListAlerts)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, rec)
			}
		})
	}
}
