package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration represents one versioned schema change applied at startup.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Migrations lists every schema change in application order. New entries are
// appended with the next version number; applied versions are never edited.
var Migrations = []Migration{
	{
		Version:     "001",
		Description: "create rooms and reservations",
		SQL: `
CREATE TABLE IF NOT EXISTS rooms (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL UNIQUE,
    location        TEXT NOT NULL DEFAULT '',
    capacity        INTEGER NOT NULL DEFAULT 0 CHECK (capacity >= 0),
    ignore_conflict INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
    id             TEXT PRIMARY KEY,
    room_id        TEXT NOT NULL REFERENCES rooms(id),
    date           TEXT NOT NULL,
    from_time      TEXT NOT NULL,
    to_time        TEXT NOT NULL,
    break_minutes  INTEGER NOT NULL DEFAULT 0,
    customer_id    TEXT,
    project_id     TEXT,
    editor_id      TEXT,
    contact_person TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'tentative',
    remarks        TEXT NOT NULL DEFAULT '',
    is_cancelled   INTEGER NOT NULL DEFAULT 0,
    cancel_reason  TEXT,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);
`,
	},
	{
		Version:     "002",
		Description: "index reservations by room and date for conflict candidate queries",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_reservations_room_date
    ON reservations (room_id, date, is_cancelled);
`,
	},
}

// Manager applies pending migrations sequentially, each inside its own
// transaction, tracking applied versions in a schema_migrations table.
type Manager struct {
	db *sql.DB
}

// NewManager constructs a Manager for the provided database handle.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Run applies every pending migration in version order.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.initVersionTable(ctx); err != nil {
		return err
	}

	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return err
	}
	appliedSet := make(map[string]struct{}, len(applied))
	for _, version := range applied {
		appliedSet[version] = struct{}{}
	}

	for _, migration := range Migrations {
		if _, ok := appliedSet[migration.Version]; ok {
			continue
		}
		if err := m.apply(ctx, migration); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", migration.Version, migration.Description, err)
		}
	}

	return nil
}

// AppliedVersions returns the versions recorded in schema_migrations in apply order.
func (m *Manager) AppliedVersions(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (m *Manager) initVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("failed to initialise schema_migrations: %w", err)
	}
	return nil
}

func (m *Manager) apply(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("apply failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	appliedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", migration.Version, appliedAt); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("record failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}
