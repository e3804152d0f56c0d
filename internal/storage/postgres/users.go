package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	svcwatch "github.com/svcwatch/svcwatch"
)

// UserRepository implements svcwatch.UserDirectory.
type UserRepository struct {
	db *sql.DB
}

const userColumns = `id, username, email, hashed_password, is_active, is_superuser,
	can_edit, is_totp_enabled, totp_secret, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*svcwatch.UserRecord, error) {
	var user svcwatch.UserRecord
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.HashedPassword,
		&user.IsActive, &user.IsSuperuser, &user.CanEdit,
		&user.IsTOTPEnabled, &user.TOTPSecret, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*svcwatch.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svcwatch.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*svcwatch.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svcwatch.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]svcwatch.UserRecord, int, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []svcwatch.UserRecord
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return users, count, nil
}

func (r *UserRepository) Create(ctx context.Context, user *svcwatch.UserRecord) error {
	query := `INSERT INTO users (id, username, email, hashed_password, is_active,
			is_superuser, can_edit, is_totp_enabled, totp_secret, created_at, updated_at)
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email,
		user.HashedPassword, user.IsActive, user.IsSuperuser, user.CanEdit,
		user.IsTOTPEnabled, user.TOTPSecret, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return svcwatch.ErrEmailExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *svcwatch.UserRecord) error {
	query := `UPDATE users SET username = $2, email = $3, hashed_password = $4,
			is_active = $5, is_superuser = $6, can_edit = $7,
			is_totp_enabled = $8, totp_secret = $9, updated_at = $10
		  WHERE id = $1`

	user.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email,
		user.HashedPassword, user.IsActive, user.IsSuperuser, user.CanEdit,
		user.IsTOTPEnabled, user.TOTPSecret, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return svcwatch.ErrEmailExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return svcwatch.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return svcwatch.ErrUserNotFound
	}
	return nil
}
