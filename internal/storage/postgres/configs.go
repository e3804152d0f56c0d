package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	svcwatch "github.com/svcwatch/svcwatch"
)

// ConfigRepository implements svcwatch.ServiceConfigStore.
type ConfigRepository struct {
	db *sql.DB
}

func (r *ConfigRepository) GetConfig(ctx context.Context, serviceID string) (*svcwatch.ServiceConfig, error) {
	var config svcwatch.ServiceConfig
	err := r.db.QueryRowContext(ctx,
		`SELECT email_from, email_cc, email_to, alert_email_title, alert_email_body,
			recovery_email_title, recovery_email_body, slack_link, teams_link
		 FROM service_configs WHERE service_id = $1`, serviceID).
		Scan(&config.EmailFrom, &config.EmailCC, &config.EmailTo,
			&config.AlertEmailTitle, &config.AlertEmailBody,
			&config.RecoveryEmailTitle, &config.RecoveryEmailBody,
			&config.SlackLink, &config.TeamsLink)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svcwatch.ErrServiceNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &config, nil
}

func (r *ConfigRepository) UpsertConfig(ctx context.Context, serviceID string, config *svcwatch.ServiceConfig) error {
	query := `INSERT INTO service_configs (service_id, email_from, email_cc, email_to,
			alert_email_title, alert_email_body, recovery_email_title,
			recovery_email_body, slack_link, teams_link)
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		  ON CONFLICT (service_id) DO UPDATE SET
			email_from = EXCLUDED.email_from,
			email_cc = EXCLUDED.email_cc,
			email_to = EXCLUDED.email_to,
			alert_email_title = EXCLUDED.alert_email_title,
			alert_email_body = EXCLUDED.alert_email_body,
			recovery_email_title = EXCLUDED.recovery_email_title,
			recovery_email_body = EXCLUDED.recovery_email_body,
			slack_link = EXCLUDED.slack_link,
			teams_link = EXCLUDED.teams_link`

	_, err := r.db.ExecContext(ctx, query, serviceID,
		config.EmailFrom, config.EmailCC, config.EmailTo,
		config.AlertEmailTitle, config.AlertEmailBody,
		config.RecoveryEmailTitle, config.RecoveryEmailBody,
		config.SlackLink, config.TeamsLink)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
