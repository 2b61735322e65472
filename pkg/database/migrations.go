package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Migration is one versioned schema change, loaded from a
// "NNN_name.sql" file
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending schema migrations
type Migrator struct {
	conn   *Connection
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(conn *Connection, logger *zap.Logger) *Migrator {
	return &Migrator{conn: conn, logger: logger}
}

// Run applies every migration in dir that has not been recorded yet
func (m *Migrator) Run(dir string) error {
	m.logger.Info("Running database migrations", zap.String("dir", dir))

	if _, err := m.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	migrations, err := loadMigrations(dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, mg := range migrations {
		if applied[mg.Version] {
			continue
		}
		m.logger.Info("Applying migration", zap.Int("version", mg.Version), zap.String("name", mg.Name))
		if err := m.apply(mg); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", mg.Version, err)
		}
	}

	m.logger.Info("Database migrations completed")
	return nil
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.conn.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(mg Migration) error {
	tx, err := m.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(mg.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mg.Version, mg.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func loadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}

		var version int
		if _, err := fmt.Sscanf(e.Name(), "%d", &version); err != nil {
			return nil, fmt.Errorf("invalid migration filename %s: expected NNN_name.sql", e.Name())
		}
		name := strings.TrimSuffix(e.Name(), ".sql")
		if parts := strings.SplitN(name, "_", 2); len(parts) == 2 {
			name = parts[1]
		}

		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
