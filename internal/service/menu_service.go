package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/cache"
	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

type MenuRepo interface {
	ListDays(ctx context.Context) ([]models.DayMenu, error)
	ReplaceDays(ctx context.Context, days []models.DayMenu) error
	ListMeals(ctx context.Context) ([]models.Meal, error)
	ReplaceMeals(ctx context.Context, meals []models.Meal) error
}

const (
	weekKey  = "week"
	mealsKey = "meals"
)

// MenuService serves the weekly menu and meal settings from a short-lived cache.
type MenuService struct {
	repo   MenuRepo
	days   *cache.Cache[[]models.DayMenu]
	meals  *cache.Cache[[]models.Meal]
	logger *slog.Logger
}

func NewMenuService(repo MenuRepo, ttl time.Duration, logger *slog.Logger) *MenuService {
	return &MenuService{
		repo:   repo,
		days:   cache.New[[]models.DayMenu](ttl),
		meals:  cache.New[[]models.Meal](ttl),
		logger: logger,
	}
}

// Week returns the menu ordered Monday to Sunday.
func (s *MenuService) Week(ctx context.Context) ([]models.DayMenu, error) {
	if days, ok := s.days.Get(weekKey); ok {
		return days, nil
	}
	days, err := s.repo.ListDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	if days == nil {
		days = []models.DayMenu{}
	}
	models.SortWeek(days)
	s.days.Set(weekKey, days)
	return days, nil
}

func (s *MenuService) SetWeek(ctx context.Context, days []models.DayMenu) error {
	if err := models.ValidateWeek(days); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.repo.ReplaceDays(ctx, days); err != nil {
		return fmt.Errorf("save menu: %w", err)
	}
	s.days.Delete(weekKey)
	s.logger.InfoContext(ctx, "weekly menu updated")
	return nil
}

func (s *MenuService) Meals(ctx context.Context) ([]models.Meal, error) {
	if meals, ok := s.meals.Get(mealsKey); ok {
		return meals, nil
	}
	meals, err := s.repo.ListMeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	if meals == nil {
		meals = []models.Meal{}
	}
	s.meals.Set(mealsKey, meals)
	return meals, nil
}

// SetMeals validates and stores meal prices and timings.
func (s *MenuService) SetMeals(ctx context.Context, meals []models.Meal) error {
	if len(meals) == 0 {
		return fmt.Errorf("%w: no meals given", ErrInvalidInput)
	}
	seen := make(map[models.MealSlot]bool)
	for _, m := range meals {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		slot, _ := m.Slot()
		if seen[slot] {
			return fmt.Errorf("%w: duplicate meal %s", ErrInvalidInput, slot)
		}
		seen[slot] = true
	}
	if err := s.repo.ReplaceMeals(ctx, meals); err != nil {
		return fmt.Errorf("save meals: %w", err)
	}
	s.meals.Delete(mealsKey)
	s.logger.InfoContext(ctx, "meal settings updated", "meals", len(meals))
	return nil
}
