package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MealSlot indexes the rows of a Grid.
type MealSlot int

const (
	Breakfast MealSlot = iota
	Lunch
	Dinner
)

const (
	MealSlots   = 3
	DaysPerWeek = 7
)

var mealNames = [MealSlots]string{"breakfast", "lunch", "dinner"}

// DayNames lists the week in mess order, Monday first.
var DayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (m MealSlot) String() string {
	if !m.Valid() {
		return fmt.Sprintf("meal(%d)", int(m))
	}
	return mealNames[m]
}

func (m MealSlot) Valid() bool { return m >= 0 && m < MealSlots }

// ParseMealSlot accepts a meal name in any case.
func ParseMealSlot(s string) (MealSlot, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range mealNames {
		if n == name {
			return MealSlot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown meal %q", s)
}

// Grid is the meal-slot x day-of-week matrix of a weekly coupon.
type Grid [MealSlots][DaysPerWeek]bool

// Has reports whether the cell is set. Out of range cells are never set.
func (g Grid) Has(meal MealSlot, day int) bool {
	if !meal.Valid() || day < 0 || day >= DaysPerWeek {
		return false
	}
	return g[meal][day]
}

// Count returns the number of set cells.
func (g Grid) Count() int {
	n := 0
	for _, row := range g {
		for _, set := range row {
			if set {
				n++
			}
		}
	}
	return n
}

// CountMeal returns the number of set cells in one row.
func (g Grid) CountMeal(meal MealSlot) int {
	if !meal.Valid() {
		return 0
	}
	n := 0
	for _, set := range g[meal] {
		if set {
			n++
		}
	}
	return n
}

// DayIndex maps t onto the Monday-first day index of its own location.
func DayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekStart returns midnight of the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -DayIndex(t))
}

// Value stores the grid as a JSON array of rows. It is returned as a string
// so lib/pq sends it as text rather than bytea.
func (g Grid) Value() (driver.Value, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a grid written by Value.
func (g *Grid) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*g = Grid{}
		return nil
	default:
		return fmt.Errorf("scan grid: unsupported type %T", src)
	}
	var out Grid
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan grid: %w", err)
	}
	*g = out
	return nil
}
