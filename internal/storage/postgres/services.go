package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	svcwatch "github.com/svcwatch/svcwatch"
)

// ServiceRepository implements svcwatch.ServiceStore.
type ServiceRepository struct {
	db *sql.DB
}

func (r *ServiceRepository) IsAssociated(ctx context.Context, userID, serviceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM services WHERE id = $1)`, serviceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return false, svcwatch.ErrServiceNotFound
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_services WHERE user_id = $1 AND service_id = $2)`,
		userID, serviceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *ServiceRepository) List(ctx context.Context, offset, limit int) ([]svcwatch.ServiceRecord, int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, sub_name, created_at FROM services ORDER BY created_at, id OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	services, err := collectServices(rows)
	if err != nil {
		return nil, 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM services`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return services, count, nil
}

func (r *ServiceRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]svcwatch.ServiceRecord, int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.sub_name, s.created_at
		 FROM services s JOIN user_services us ON us.service_id = s.id
		 WHERE us.user_id = $1
		 ORDER BY s.created_at, s.id OFFSET $2 LIMIT $3`,
		userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	services, err := collectServices(rows)
	if err != nil {
		return nil, 0, err
	}

	var count int
	err = r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM user_services WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return services, count, nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*svcwatch.ServiceRecord, error) {
	var service svcwatch.ServiceRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, sub_name, created_at FROM services WHERE id = $1`, id).
		Scan(&service.ID, &service.Name, &service.SubName, &service.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svcwatch.ErrServiceNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &service, nil
}

func (r *ServiceRepository) Create(ctx context.Context, service *svcwatch.ServiceRecord) error {
	if service.CreatedAt.IsZero() {
		service.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO services (id, name, sub_name, created_at) VALUES ($1, $2, $3, $4)`,
		service.ID, service.Name, service.SubName, service.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return svcwatch.ErrServiceExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return svcwatch.ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepository) Users(ctx context.Context, serviceID string) ([]svcwatch.UserRecord, error) {
	if _, err := r.GetByID(ctx, serviceID); err != nil {
		return nil, err
	}

	query := `SELECT u.id, u.username, u.email, u.hashed_password, u.is_active,
			u.is_superuser, u.can_edit, u.is_totp_enabled, u.totp_secret,
			u.created_at, u.updated_at
		  FROM users u JOIN user_services us ON us.user_id = u.id
		  WHERE us.service_id = $1
		  ORDER BY u.created_at, u.id`
	rows, err := r.db.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []svcwatch.UserRecord
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func (r *ServiceRepository) UserServices(ctx context.Context, userID string) ([]svcwatch.ServiceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.sub_name, s.created_at
		 FROM services s JOIN user_services us ON us.service_id = s.id
		 WHERE us.user_id = $1
		 ORDER BY s.created_at, s.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collectServices(rows)
}

func (r *ServiceRepository) ReplaceUserServices(ctx context.Context, userID string, serviceIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer tx.Rollback()

	for _, serviceID := range serviceIDs {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM services WHERE id = $1)`, serviceID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if !exists {
			return svcwatch.ErrServiceNotFound
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_services WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, serviceID := range serviceIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_services (user_id, service_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, serviceID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func collectServices(rows *sql.Rows) ([]svcwatch.ServiceRecord, error) {
	defer rows.Close()

	var services []svcwatch.ServiceRecord
	for rows.Next() {
		var service svcwatch.ServiceRecord
		if err := rows.Scan(&service.ID, &service.Name, &service.SubName, &service.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return services, nil
}
