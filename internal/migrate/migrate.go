// Package migrate applies the embedded schema migrations.
//
// Online mode (Up) runs every pending migration inside one transaction
// against a live database. Offline mode (Script) renders the same work as a
// SQL script for a DBA to apply, using only the dialect.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"docsearch/config/database"
	"docsearch/migrations"
	"docsearch/pkg/logger"
)

const createSchemaTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const (
	currentVersionQuery = `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`
	recordVersionQuery  = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

type Migration struct {
	Version int
	Name    string
	SQL     string
}

type Runner struct {
	Dialect database.Dialect
	// FS holds one directory per dialect name.
	FS fs.FS
}

func NewRunner(dialect database.Dialect) *Runner {
	return &Runner{Dialect: dialect, FS: migrations.FS}
}

// Migrations lists the dialect's migrations ordered by version.
func (r *Runner) Migrations() ([]Migration, error) {
	dir := r.Dialect.Name
	entries, err := fs.ReadDir(r.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations for %s: %w", dir, err)
	}

	var list []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version < 1 {
			return nil, fmt.Errorf("migration %s: name must start with a positive version number", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name

		content, err := fs.ReadFile(r.FS, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}
		list = append(list, Migration{Version: version, Name: name, SQL: string(content)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Version < list[j].Version })
	return list, nil
}

func (r *Runner) pendingAfter(version int) ([]Migration, error) {
	all, err := r.Migrations()
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, m := range all {
		if m.Version > version {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Up applies all pending migrations in a single transaction and returns
// the ones applied. Nothing is applied if any migration fails.
func (r *Runner) Up(ctx context.Context, db *sql.DB) ([]Migration, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin migration transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := r.currentVersion(ctx, tx)
	if err != nil {
		return nil, err
	}
	pending, err := r.pendingAfter(current)
	if err != nil {
		return nil, err
	}

	for _, m := range pending {
		logger.Sugar.Infof("Running upgrade %d -> %d (%s)", current, m.Version, m.Name)
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			return nil, fmt.Errorf("executing migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(recordVersionQuery), m.Version); err != nil {
			return nil, fmt.Errorf("recording migration %s: %w", m.Name, err)
		}
		current = m.Version
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit migrations: %w", err)
	}
	return pending, nil
}

// Status reports the applied version and the pending migrations without
// changing the database.
func (r *Runner) Status(ctx context.Context, db *sql.DB) (int, []Migration, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin status transaction: %w", err)
	}
	// Rolled back so a missing schema_migrations table is not left behind.
	defer tx.Rollback()

	current, err := r.currentVersion(ctx, tx)
	if err != nil {
		return 0, nil, err
	}
	pending, err := r.pendingAfter(current)
	if err != nil {
		return 0, nil, err
	}
	return current, pending, nil
}

func (r *Runner) currentVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	if _, err := tx.ExecContext(ctx, createSchemaTable); err != nil {
		return 0, fmt.Errorf("creating schema_migrations table: %w", err)
	}
	var version int
	if err := tx.QueryRowContext(ctx, currentVersionQuery).Scan(&version); err != nil {
		return 0, fmt.Errorf("getting current version: %w", err)
	}
	return version, nil
}

// Script writes a SQL script applying every migration after version from,
// including the schema_migrations bookkeeping, wrapped in one transaction.
func (r *Runner) Script(w io.Writer, from int) error {
	pending, err := r.pendingAfter(from)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "-- docsearch schema migrations (%s), from version %d\n\n", r.Dialect.Name, from)
	sb.WriteString("BEGIN;\n\n")
	sb.WriteString(createSchemaTable + ";\n\n")

	current := from
	for _, m := range pending {
		fmt.Fprintf(&sb, "-- Running upgrade %d -> %d (%s)\n\n", current, m.Version, m.Name)
		sb.WriteString(strings.TrimRight(m.SQL, "\n") + "\n\n")
		fmt.Fprintf(&sb, "INSERT INTO schema_migrations (version) VALUES (%d);\n\n", m.Version)
		current = m.Version
	}
	sb.WriteString("COMMIT;\n")

	_, err = io.WriteString(w, sb.String())
	return err
}
