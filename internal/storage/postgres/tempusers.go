package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svcwatch/svcwatch/internal/transfer"
)

// TempUserRepository implements transfer.Store.
type TempUserRepository struct {
	db *sql.DB
}

const tempUserColumns = `id, username, secret_hash, company_name, kind, file_name, expires_at, created_at`

func scanTempUser(row interface{ Scan(...any) error }) (*transfer.TempUser, error) {
	var user transfer.TempUser
	err := row.Scan(&user.ID, &user.Username, &user.SecretHash, &user.CompanyName,
		&user.Kind, &user.FileName, &user.ExpiresAt, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *TempUserRepository) Create(ctx context.Context, user *transfer.TempUser) error {
	query := `INSERT INTO temp_users (` + tempUserColumns + `)
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.SecretHash,
		user.CompanyName, user.Kind, user.FileName, user.ExpiresAt, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *TempUserRepository) GetByID(ctx context.Context, id string) (*transfer.TempUser, error) {
	query := `SELECT ` + tempUserColumns + ` FROM temp_users WHERE id = $1`
	user, err := scanTempUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transfer.ErrTempUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *TempUserRepository) GetByUsername(ctx context.Context, username string) (*transfer.TempUser, error) {
	query := `SELECT ` + tempUserColumns + ` FROM temp_users WHERE username = $1`
	user, err := scanTempUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transfer.ErrTempUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *TempUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM temp_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return transfer.ErrTempUserNotFound
	}
	return nil
}
