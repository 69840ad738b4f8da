package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/qr"
	"github.com/Cheertaboi/mess-coupon-service/internal/service"
)

// --- Request / Response DTOs ---

type ScanRequest struct {
	Code string `json:"code"`
}

type QRCodeResponse struct {
	Code string `json:"code"`
	Day  string `json:"day"`
	Meal string `json:"meal"`
}

type PurchaseRequest struct {
	Selected models.Grid `json:"selected"`
}

type SettleRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// CouponService is implemented by service.CouponService.
type CouponService interface {
	MyCoupons(ctx context.Context, userID string) (*service.CouponStatus, error)
	InitiatePurchase(ctx context.Context, userID string, selection models.Grid) (*service.Checkout, error)
	SettlePurchase(ctx context.Context, userID, gatewayOrderID, paymentID, signature string) (*models.PaymentOrder, error)
	QRCode(ctx context.Context, userID string, day int, meal models.MealSlot) (string, error)
	Redeem(ctx context.Context, code string) (*models.RedemptionResult, error)
	MealCounts(ctx context.Context) ([]models.MealCount, error)
}

// --- Handler struct & constructor ---

type CouponHandler struct {
	svc    CouponService
	logger *slog.Logger
}

func NewCouponHandler(svc CouponService, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{svc: svc, logger: logger}
}

// --- Helpers ---

// parseCell reads ?day= (index 0-6 or a day name) and ?meal= (name).
func parseCell(r *http.Request) (int, models.MealSlot, error) {
	q := r.URL.Query()
	rawDay := strings.TrimSpace(q.Get("day"))
	day, err := strconv.Atoi(rawDay)
	if err != nil {
		var ok bool
		if day, ok = models.ParseDay(rawDay); !ok {
			return 0, 0, fmt.Errorf("%w: unknown day %q", service.ErrInvalidInput, rawDay)
		}
	}
	if day < 0 || day >= models.DaysPerWeek {
		return 0, 0, fmt.Errorf("%w: day %d out of range", service.ErrInvalidInput, day)
	}
	meal, err := models.ParseMealSlot(q.Get("meal"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	return day, meal, nil
}

// --- Handlers ---

// MyCoupons handles GET /coupons. Admins may inspect another user via ?userId=.
func (h *CouponHandler) MyCoupons(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	userID := c.UserID
	if other := r.URL.Query().Get("userId"); other != "" && other != userID {
		if !c.IsAdmin {
			writeError(w, r, h.logger, service.ErrForbidden)
			return
		}
		userID = other
	}
	status, err := h.svc.MyCoupons(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// QRCode handles GET /coupons/qr/code
func (h *CouponHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	day, meal, err := parseCell(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	code, err := h.svc.QRCode(r.Context(), caller(r).UserID, day, meal)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, QRCodeResponse{Code: code, Day: models.DayNames[day], Meal: meal.String()})
}

// QRImage handles GET /coupons/qr and answers with a PNG.
func (h *CouponHandler) QRImage(w http.ResponseWriter, r *http.Request) {
	day, meal, err := parseCell(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}
	code, err := h.svc.QRCode(r.Context(), caller(r).UserID, day, meal)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	png, err := qr.RenderPNG(code, size)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Scan handles POST /coupons/scan
func (h *CouponHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Redeem(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TotalMeal handles GET /coupons/totalMeal
func (h *CouponHandler) TotalMeal(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.MealCounts(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// InitiatePayment handles POST /payments/initiate
func (h *CouponHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	checkout, err := h.svc.InitiatePurchase(r.Context(), caller(r).UserID, req.Selected)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkout)
}

// SettlePayment handles POST /payments with the checkout callback fields.
func (h *CouponHandler) SettlePayment(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		writeError(w, r, h.logger, fmt.Errorf("%w: missing razorpay callback fields", service.ErrInvalidInput))
		return
	}
	order, err := h.svc.SettlePurchase(r.Context(), caller(r).UserID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "coupon_purchased",
		"order":   order,
	})
}
