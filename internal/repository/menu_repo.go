package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

type MenuRepo struct {
	db *sql.DB
}

func NewMenuRepo(db *sql.DB) *MenuRepo {
	return &MenuRepo{db: db}
}

func (r *MenuRepo) ListDays(ctx context.Context) ([]models.DayMenu, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day, breakfast, lunch, dinner FROM day_menus ORDER BY day_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.DayMenu
	for rows.Next() {
		var d models.DayMenu
		if err := rows.Scan(&d.Day, &d.Breakfast, &d.Lunch, &d.Dinner); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// ReplaceDays overwrites the weekly menu. Days must already be validated.
func (r *MenuRepo) ReplaceDays(ctx context.Context, days []models.DayMenu) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := `
		INSERT INTO day_menus (day_index, day, breakfast, lunch, dinner)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day_index) DO UPDATE
		SET day = EXCLUDED.day, breakfast = EXCLUDED.breakfast, lunch = EXCLUDED.lunch, dinner = EXCLUDED.dinner
	`
	for _, d := range days {
		idx, ok := models.ParseDay(d.Day)
		if !ok {
			return fmt.Errorf("%w: unknown day %q", models.ErrInvalidMenu, d.Day)
		}
		if _, err := tx.ExecContext(ctx, stmt, idx, models.DayNames[idx], d.Breakfast, d.Lunch, d.Dinner); err != nil {
			return fmt.Errorf("upsert %s: %w", d.Day, err)
		}
	}

	return tx.Commit()
}

func (r *MenuRepo) ListMeals(ctx context.Context) ([]models.Meal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT meal_name, cost, start_time, end_time
		FROM meals
		ORDER BY CASE meal_name WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 ELSE 2 END
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []models.Meal
	for rows.Next() {
		var m models.Meal
		if err := rows.Scan(&m.Name, &m.Cost, &m.StartTime, &m.EndTime); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// ReplaceMeals upserts every meal in one transaction.
func (r *MenuRepo) ReplaceMeals(ctx context.Context, meals []models.Meal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := `
		INSERT INTO meals (meal_name, cost, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (meal_name) DO UPDATE
		SET cost = EXCLUDED.cost, start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time
	`
	for _, m := range meals {
		slot, err := m.Slot()
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidMenu, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, slot.String(), m.Cost, m.StartTime, m.EndTime); err != nil {
			return fmt.Errorf("upsert %s: %w", slot, err)
		}
	}

	return tx.Commit()
}
