package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

type NoticeRepo struct {
	db *sql.DB
}

func NewNoticeRepo(db *sql.DB) *NoticeRepo {
	return &NoticeRepo{db: db}
}

const noticeColumns = `id, subject, body, COALESCE(created_by::text, ''), created_at, updated_at`

func (r *NoticeRepo) List(ctx context.Context) ([]models.Notice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+noticeColumns+` FROM notices ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notices := []models.Notice{}
	for rows.Next() {
		var n models.Notice
		if err := rows.Scan(&n.ID, &n.Subject, &n.Body, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

func (r *NoticeRepo) Get(ctx context.Context, id string) (*models.Notice, error) {
	var n models.Notice
	err := r.db.QueryRowContext(ctx, `SELECT `+noticeColumns+` FROM notices WHERE id = $1`, id).
		Scan(&n.ID, &n.Subject, &n.Body, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NoticeRepo) Create(ctx context.Context, n *models.Notice) error {
	var createdBy any
	if n.CreatedBy != "" {
		createdBy = n.CreatedBy
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO notices (id, subject, body, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`, n.ID, n.Subject, n.Body, createdBy).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *NoticeRepo) Update(ctx context.Context, id string, in models.NoticeInput) (*models.Notice, error) {
	var n models.Notice
	err := r.db.QueryRowContext(ctx, `
		UPDATE notices
		SET subject = $2, body = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+noticeColumns,
		id, in.Subject, in.Body,
	).Scan(&n.ID, &n.Subject, &n.Body, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NoticeRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
