package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"attendance.service/internal/ports"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository contract
type Repository interface {
	// InsertEvent stores an audit event. It reports false when an event with
	// the same id was already stored.
	InsertEvent(ctx context.Context, event ports.AuditEvent, source string) (bool, error)
	ListUserEvents(ctx context.Context, userID string, limit int) ([]ports.AuditEvent, error)
}

// Migrate applies any pending schema migrations.
func Migrate(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
