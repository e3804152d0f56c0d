package postgres

import (
	"context"
	"database/sql"
	"fmt"

	svcwatch "github.com/svcwatch/svcwatch"
)

// LogRepository implements svcwatch.ServiceLogStore.
type LogRepository struct {
	db *sql.DB
}

func (r *LogRepository) Logs(ctx context.Context, serviceID string, offset, limit int) ([]svcwatch.ServiceLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, service_id, start_time, end_time, elapsed_time, is_ok, screenshot, content
		 FROM service_logs WHERE service_id = $1
		 ORDER BY id DESC OFFSET $2 LIMIT $3`, serviceID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var entries []svcwatch.ServiceLogEntry
	for rows.Next() {
		var entry svcwatch.ServiceLogEntry
		var start, end sql.NullTime
		err := rows.Scan(&entry.ID, &entry.ServiceID, &start, &end,
			&entry.ElapsedTime, &entry.IsOK, &entry.Screenshot, &entry.Content)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		entry.StartTime = start.Time
		entry.EndTime = end.Time
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}

func (r *LogRepository) AppendLog(ctx context.Context, serviceID string, entry *svcwatch.ServiceLogEntry) error {
	query := `INSERT INTO service_logs (service_id, start_time, end_time, elapsed_time,
			is_ok, screenshot, content)
		  VALUES ($1, $2, $3, $4, $5, $6, $7)
		  RETURNING id`

	entry.ServiceID = serviceID
	err := r.db.QueryRowContext(ctx, query, serviceID,
		entry.StartTime, entry.EndTime, entry.ElapsedTime,
		entry.IsOK, entry.Screenshot, entry.Content).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
