package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/outcomefi/engine/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps an engine or store error to an HTTP response. Engine
// precondition failures carry their sentinel message to the client; anything
// unrecognized is logged and returned as a 500.
func writeEngineError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if status, ok := statusFor(err); ok {
		writeError(w, status, rootCause(err).Error())
		return
	}
	logger.ErrorContext(r.Context(), "handler: request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// statusFor maps known sentinel errors to HTTP status codes.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrNotOrderMaker):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrMarketClosed),
		errors.Is(err, domain.ErrOrderNotOpen),
		errors.Is(err, domain.ErrSideMismatch),
		errors.Is(err, domain.ErrOutcomeMismatch),
		errors.Is(err, domain.ErrNoPriceCross),
		errors.Is(err, domain.ErrPoolInactive),
		errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrInvalidLPShare):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrPriceOutOfRange),
		errors.Is(err, domain.ErrAmountTooSmall),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrMarketIDMismatch),
		errors.Is(err, domain.ErrZeroAmount):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// rootCause unwraps to the innermost error so clients see the sentinel
// message without store or service prefixes.
func rootCause(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// pathUint64 parses a numeric path parameter such as an order ID.
func pathUint64(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(pathParam(r, name), 10, 64)
}

// parseOutcome validates an outcome string from a path or query parameter.
func parseOutcome(s string) (domain.Outcome, bool) {
	o := domain.Outcome(s)
	return o, o.Valid()
}
