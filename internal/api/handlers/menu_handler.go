package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

// MenuService is implemented by service.MenuService.
type MenuService interface {
	Week(ctx context.Context) ([]models.DayMenu, error)
	SetWeek(ctx context.Context, days []models.DayMenu) error
	Meals(ctx context.Context) ([]models.Meal, error)
	SetMeals(ctx context.Context, meals []models.Meal) error
}

type MenuHandler struct {
	svc    MenuService
	logger *slog.Logger
}

func NewMenuHandler(svc MenuService, logger *slog.Logger) *MenuHandler {
	return &MenuHandler{svc: svc, logger: logger}
}

// GetMenu handles GET /days/getMenu
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	days, err := h.svc.Week(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// SetMenu handles POST /days/setMenu with all seven days.
func (h *MenuHandler) SetMenu(w http.ResponseWriter, r *http.Request) {
	var days []models.DayMenu
	if err := decodeJSON(w, r, &days); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.SetWeek(r.Context(), days); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "menu_updated"})
}

// GetMeals handles GET /meals/getMeals
func (h *MenuHandler) GetMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := h.svc.Meals(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

// SetMeals handles POST /meals/setMeals
func (h *MenuHandler) SetMeals(w http.ResponseWriter, r *http.Request) {
	var meals []models.Meal
	if err := decodeJSON(w, r, &meals); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.SetMeals(r.Context(), meals); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "meals_updated"})
}
