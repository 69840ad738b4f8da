package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

type menuRepoStub struct {
	days       []models.DayMenu
	meals      []models.Meal
	listCalls  int
	mealCalls  int
	savedDays  []models.DayMenu
	savedMeals []models.Meal
}

func (s *menuRepoStub) ListDays(ctx context.Context) ([]models.DayMenu, error) {
	s.listCalls++
	out := make([]models.DayMenu, len(s.days))
	copy(out, s.days)
	return out, nil
}

func (s *menuRepoStub) ReplaceDays(ctx context.Context, days []models.DayMenu) error {
	s.savedDays = days
	s.days = days
	return nil
}

func (s *menuRepoStub) ListMeals(ctx context.Context) ([]models.Meal, error) {
	s.mealCalls++
	return s.meals, nil
}

func (s *menuRepoStub) ReplaceMeals(ctx context.Context, meals []models.Meal) error {
	s.savedMeals = meals
	s.meals = meals
	return nil
}

func fullWeek() []models.DayMenu {
	days := make([]models.DayMenu, models.DaysPerWeek)
	for i, name := range models.DayNames {
		days[i] = models.DayMenu{Day: name, Breakfast: "Poha", Lunch: "Dal", Dinner: "Roti"}
	}
	return days
}

func TestMenuWeekSortedAndCached(t *testing.T) {
	repo := &menuRepoStub{days: []models.DayMenu{
		{Day: "Sunday", Lunch: "Biryani"},
		{Day: "Monday", Lunch: "Dal"},
		{Day: "Wednesday", Lunch: "Rajma"},
	}}
	svc := NewMenuService(repo, 0, discardLogger())
	ctx := context.Background()

	days, err := svc.Week(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if days[0].Day != "Monday" || days[1].Day != "Wednesday" || days[2].Day != "Sunday" {
		t.Fatalf("expected Monday-first order, got %+v", days)
	}
	if _, err := svc.Week(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected one repository read, got %d", repo.listCalls)
	}
}

func TestMenuSetWeekInvalidatesCache(t *testing.T) {
	repo := &menuRepoStub{days: []models.DayMenu{{Day: "Monday", Lunch: "Dal"}}}
	svc := NewMenuService(repo, 0, discardLogger())
	ctx := context.Background()

	if _, err := svc.Week(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	week := fullWeek()
	week[0].Lunch = "Chole"
	if err := svc.SetWeek(ctx, week); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	days, err := svc.Week(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if days[0].Lunch != "Chole" {
		t.Fatalf("expected updated menu, got %+v", days)
	}

	bad := fullWeek()
	bad[3].Day = "Funday"
	if err := svc.SetWeek(ctx, bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected %v, got %v", ErrInvalidInput, err)
	}
	if err := svc.SetWeek(ctx, fullWeek()[:6]); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected %v for short week, got %v", ErrInvalidInput, err)
	}
}

func TestMenuSetMeals(t *testing.T) {
	valid := []models.Meal{
		{Name: "breakfast", Cost: decimal.NewFromInt(30), StartTime: "07:30", EndTime: "09:30"},
		{Name: "lunch", Cost: decimal.NewFromInt(50), StartTime: "12:00", EndTime: "14:00"},
	}

	tests := []struct {
		name  string
		meals []models.Meal
		want  error
	}{
		{name: "valid", meals: valid},
		{name: "empty", meals: nil, want: ErrInvalidInput},
		{name: "duplicate", meals: append(append([]models.Meal{}, valid...), valid[0]), want: ErrInvalidInput},
		{name: "bad window", meals: []models.Meal{{Name: "dinner", Cost: decimal.NewFromInt(40), StartTime: "21:00", EndTime: "19:00"}}, want: ErrInvalidInput},
		{name: "unknown meal", meals: []models.Meal{{Name: "snacks", Cost: decimal.NewFromInt(10), StartTime: "16:00", EndTime: "17:00"}}, want: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &menuRepoStub{}
			svc := NewMenuService(repo, 0, discardLogger())
			err := svc.SetMeals(context.Background(), tt.meals)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.want == nil && len(repo.savedMeals) != len(tt.meals) {
				t.Fatalf("expected %d saved meals, got %d", len(tt.meals), len(repo.savedMeals))
			}
			if tt.want != nil && repo.savedMeals != nil {
				t.Fatalf("expected nothing saved")
			}
		})
	}
}
