package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomefi/engine/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrOrderNotFound, http.StatusNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrNotOrderMaker, http.StatusForbidden},
		{domain.ErrMarketClosed, http.StatusConflict},
		{domain.ErrNoPriceCross, http.StatusConflict},
		{domain.ErrInsufficientLiquidity, http.StatusConflict},
		{domain.ErrPriceOutOfRange, http.StatusBadRequest},
		{domain.ErrAmountTooLarge, http.StatusBadRequest},
		{domain.ErrZeroAmount, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			// Wrapping must not change the mapping.
			wrapped := fmt.Errorf("service: op %q: %w", "m1", tt.err)
			status, ok := statusFor(wrapped)
			require.True(t, ok)
			assert.Equal(t, tt.status, status)
		})
	}

	_, ok := statusFor(errors.New("connection reset"))
	assert.False(t, ok)
}

func TestRootCause(t *testing.T) {
	inner := domain.ErrMarketClosed
	wrapped := fmt.Errorf("trading_service: place buy: %w",
		fmt.Errorf("engine: market %q: %w", "m1", inner))
	assert.Equal(t, inner, rootCause(wrapped))
	assert.Equal(t, inner, rootCause(inner))
}

func TestWriteEngineError(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("known sentinel", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/markets/m1/orders/buy", nil)
		err := fmt.Errorf("trading_service: %w", domain.ErrMarketClosed)

		writeEngineError(rec, req, logger, err)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"market closed"}`, rec.Body.String())
	})

	t.Run("unknown error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/markets/m1", nil)

		writeEngineError(rec, req, logger, errors.New("pg: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	})
}

func TestParseListOpts(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 50, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=9999", 500, 0},
		{"limit=-5&offset=-1", 50, 0},
		{"limit=abc", 50, 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/markets?"+tt.query, nil)
		opts := parseListOpts(req)
		assert.Equal(t, tt.limit, opts.Limit, "query %q", tt.query)
		assert.Equal(t, tt.offset, opts.Offset, "query %q", tt.query)
	}
}

func TestParseOutcome(t *testing.T) {
	o, ok := parseOutcome("yes")
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeYes, o)

	o, ok = parseOutcome("no")
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeNo, o)

	_, ok = parseOutcome("maybe")
	assert.False(t, ok)
}
