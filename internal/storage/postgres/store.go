package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/internal/transfer"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	_ svcwatch.UserDirectory      = (*UserRepository)(nil)
	_ svcwatch.ServiceStore       = (*ServiceRepository)(nil)
	_ svcwatch.ServiceConfigStore = (*ConfigRepository)(nil)
	_ svcwatch.ServiceLogStore    = (*LogRepository)(nil)
	_ transfer.Store              = (*TempUserRepository)(nil)
)

// Store owns the database handle and vends the repository implementations.
type Store struct {
	db *sql.DB

	Users     *UserRepository
	Services  *ServiceRepository
	Configs   *ConfigRepository
	Logs      *LogRepository
	TempUsers *TempUserRepository
}

// Open connects to PostgreSQL and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	store := &Store{db: db}
	store.Users = &UserRepository{db: db}
	store.Services = &ServiceRepository{db: db}
	store.Configs = &ConfigRepository{db: db}
	store.Logs = &LogRepository{db: db}
	store.TempUsers = &TempUserRepository{db: db}

	if err := store.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("postgres: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
