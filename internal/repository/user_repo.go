package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, name, email, password_hash, is_admin, fcm_token, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.FCMToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_admin, fcm_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.IsAdmin, u.FCMToken).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateProfile changes the display name and, when non-empty, the password hash.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, passwordHash string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = $2,
		    password_hash = CASE WHEN $3 = '' THEN password_hash ELSE $3 END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, name, passwordHash,
	))
}

func (r *UserRepo) UpdateFCMToken(ctx context.Context, id, token string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET fcm_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFCMTokens returns every registered push token.
func (r *UserRepo) ListFCMTokens(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT fcm_token FROM users WHERE fcm_token <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

type OTPRepo struct {
	db *sql.DB
}

func NewOTPRepo(db *sql.DB) *OTPRepo {
	return &OTPRepo{db: db}
}

// Upsert starts a fresh verification for email, clearing any earlier result.
func (r *OTPRepo) Upsert(ctx context.Context, email, secret string, issuedAt, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_otps (email, secret, issued_at, expires_at, attempts, verified)
		VALUES ($1, $2, $3, $4, 0, FALSE)
		ON CONFLICT (email) DO UPDATE
		SET secret = EXCLUDED.secret, issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at,
			attempts = 0, verified = FALSE
	`, email, secret, issuedAt, expiresAt)
	return err
}

func (r *OTPRepo) Get(ctx context.Context, email string) (*models.EmailOTP, error) {
	var o models.EmailOTP
	err := r.db.QueryRowContext(ctx, `
		SELECT email, secret, issued_at, expires_at, attempts, verified FROM email_otps WHERE email = $1
	`, email).Scan(&o.Email, &o.Secret, &o.IssuedAt, &o.ExpiresAt, &o.Attempts, &o.Verified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// RecordFailure counts a wrong code and returns the new total.
func (r *OTPRepo) RecordFailure(ctx context.Context, email string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE email_otps SET attempts = attempts + 1 WHERE email = $1 RETURNING attempts
	`, email).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return n, nil
}

func (r *OTPRepo) MarkVerified(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE email_otps SET verified = TRUE WHERE email = $1`, email)
	return err
}

func (r *OTPRepo) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM email_otps WHERE email = $1`, email)
	return err
}
