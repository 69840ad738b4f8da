package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Cheertaboi/mess-coupon-service/internal/api/middleware"
	"github.com/Cheertaboi/mess-coupon-service/internal/auth"
	"github.com/Cheertaboi/mess-coupon-service/internal/service"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidSelection, http.StatusBadRequest},
	{service.ErrInvalidOTP, http.StatusBadRequest},
	{service.ErrPaymentVerification, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrEmailNotVerified, http.StatusForbidden},
	{service.ErrAlreadyPurchased, http.StatusConflict},
	{service.ErrAlreadyRedeemed, http.StatusConflict},
	{service.ErrEmailTaken, http.StatusConflict},
	{service.ErrWeekEnded, http.StatusConflict},
	{service.ErrRefundDue, http.StatusConflict},
	{service.ErrNotRedeemable, http.StatusUnprocessableEntity},
	{service.ErrOutsideMealWindow, http.StatusUnprocessableEntity},
	{service.ErrPaymentsDisabled, http.StatusServiceUnavailable},
}

// writeError maps service errors to a status and a snake_case code.
// Unknown errors are logged and reported as internal_error.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, map[string]string{"error": e.err.Error(), "detail": err.Error()})
			return
		}
	}
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
}

// decodeJSON reads exactly one JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must hold a single JSON value", service.ErrInvalidInput)
	}
	return nil
}

func caller(r *http.Request) auth.Claims {
	c, _ := middleware.ClaimsFrom(r.Context())
	return c
}
