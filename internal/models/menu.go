package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DayMenu is what the mess serves on one day of the week.
type DayMenu struct {
	Day       string `json:"day"`
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
}

// Dish returns the item served for a meal slot.
func (d DayMenu) Dish(meal MealSlot) string {
	switch meal {
	case Breakfast:
		return d.Breakfast
	case Lunch:
		return d.Lunch
	case Dinner:
		return d.Dinner
	}
	return ""
}

// ParseDay returns the Monday-first index of a day name in any case.
func ParseDay(name string) (int, bool) {
	n := strings.TrimSpace(name)
	for i, d := range DayNames {
		if strings.EqualFold(d, n) {
			return i, true
		}
	}
	return 0, false
}

// SortWeek orders days Monday to Sunday. Unknown day names sink to the end.
func SortWeek(days []DayMenu) {
	sort.SliceStable(days, func(i, j int) bool {
		return dayRank(days[i].Day) < dayRank(days[j].Day)
	})
}

func dayRank(name string) int {
	if i, ok := ParseDay(name); ok {
		return i
	}
	return DaysPerWeek
}

var ErrInvalidMenu = errors.New("invalid menu")

// ValidateWeek requires each weekday exactly once.
func ValidateWeek(days []DayMenu) error {
	if len(days) != DaysPerWeek {
		return fmt.Errorf("%w: expected %d days, got %d", ErrInvalidMenu, DaysPerWeek, len(days))
	}
	var seen [DaysPerWeek]bool
	for _, d := range days {
		i, ok := ParseDay(d.Day)
		if !ok {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidMenu, d.Day)
		}
		if seen[i] {
			return fmt.Errorf("%w: duplicate day %q", ErrInvalidMenu, d.Day)
		}
		seen[i] = true
	}
	return nil
}

// Meal carries the price and serving window of one meal slot.
type Meal struct {
	Name      string          `json:"meal_name"`
	Cost      decimal.Decimal `json:"cost"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
}

const clockLayout = "15:04"

// Slot resolves the meal name.
func (m Meal) Slot() (MealSlot, error) { return ParseMealSlot(m.Name) }

// Validate checks the name, a non-negative cost and HH:MM bounds.
func (m Meal) Validate() error {
	if _, err := m.Slot(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMenu, err)
	}
	if m.Cost.IsNegative() {
		return fmt.Errorf("%w: %s cost is negative", ErrInvalidMenu, m.Name)
	}
	start, err := time.Parse(clockLayout, m.StartTime)
	if err != nil {
		return fmt.Errorf("%w: %s start_time must be HH:MM", ErrInvalidMenu, m.Name)
	}
	end, err := time.Parse(clockLayout, m.EndTime)
	if err != nil {
		return fmt.Errorf("%w: %s end_time must be HH:MM", ErrInvalidMenu, m.Name)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: %s end_time must be after start_time", ErrInvalidMenu, m.Name)
	}
	return nil
}

// Serving reports whether the clock time of now falls inside the meal window.
// Meals without a parseable window are always serving.
func (m Meal) Serving(now time.Time) bool {
	start, err1 := time.Parse(clockLayout, m.StartTime)
	end, err2 := time.Parse(clockLayout, m.EndTime)
	if err1 != nil || err2 != nil {
		return true
	}
	minute := now.Hour()*60 + now.Minute()
	return minute >= start.Hour()*60+start.Minute() && minute <= end.Hour()*60+end.Minute()
}

// MealCosts indexes meal prices by slot.
type MealCosts [MealSlots]decimal.Decimal

// CostsFromMeals fails when any slot has no price configured.
func CostsFromMeals(meals []Meal) (MealCosts, error) {
	var costs MealCosts
	var found [MealSlots]bool
	for _, m := range meals {
		slot, err := m.Slot()
		if err != nil {
			continue
		}
		costs[slot] = m.Cost
		found[slot] = true
	}
	for i, ok := range found {
		if !ok {
			return costs, fmt.Errorf("%w: no cost configured for %s", ErrInvalidMenu, MealSlot(i))
		}
	}
	return costs, nil
}

// Total prices every selected cell of g.
func (c MealCosts) Total(g Grid) decimal.Decimal {
	total := decimal.Zero
	for i := range c {
		n := g.CountMeal(MealSlot(i))
		total = total.Add(c[i].Mul(decimal.NewFromInt(int64(n))))
	}
	return total
}

// MealCount is the number of coupons redeemable for each meal on one day.
type MealCount struct {
	Day       string `json:"day"`
	Breakfast int    `json:"breakfast"`
	Lunch     int    `json:"lunch"`
	Dinner    int    `json:"dinner"`
}
