// Package migrate versions the schema of a SQLite database from numbered
// SQL scripts and keeps a history of what was applied and when.
package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultHistoryTable holds one row per applied migration
const DefaultHistoryTable = "schema_migrations"

// 001_create_settings.up.sql, 001_create_settings.down.sql
var scriptName = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// Migration is one numbered schema change with its forward and reverse SQL
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Applied is a history row
type Applied struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

// Table is a user table and its row count
type Table struct {
	Name string
	Rows int
}

// Schema reads migration scripts from a directory of an fs.FS
type Schema struct {
	fsys    fs.FS
	dir     string
	history string
}

// NewSchema reads scripts from dir inside fsys. An empty history selects
// DefaultHistoryTable.
func NewSchema(fsys fs.FS, dir, history string) *Schema {
	if history == "" {
		history = DefaultHistoryTable
	}
	return &Schema{fsys: fsys, dir: dir, history: history}
}

// Load returns every migration in dir ordered by version. Files that do not
// follow the NNN_name.(up|down).sql pattern are ignored.
func (s *Schema) Load() ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		parts := scriptName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || parts == nil {
			continue
		}

		version, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("bad version in %s: %w", entry.Name(), err)
		}
		body, err := fs.ReadFile(s.fsys, path.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: strings.ReplaceAll(parts[2], "_", " ")}
			byVersion[version] = m
		}
		if parts[3] == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Migrator moves a database between schema versions
type Migrator struct {
	db     *sql.DB
	schema *Schema
}

func NewMigrator(db *sql.DB, schema *Schema) *Migrator {
	return &Migrator{db: db, schema: schema}
}

// Up applies every pending migration, oldest first, and returns the ones it ran
func (m *Migrator) Up() ([]Migration, error) {
	pending, err := m.Pending()
	if err != nil {
		return nil, err
	}

	for i, mig := range pending {
		if err := m.run(mig.Version, mig.Up, func(tx *sql.Tx) error {
			_, err := tx.Exec(
				fmt.Sprintf(`INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?)`, m.schema.history),
				mig.Version, mig.Name, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		}); err != nil {
			return pending[:i], fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return pending, nil
}

// Down reverts applied migrations above target, newest first, and returns
// the ones it reverted
func (m *Migrator) Down(target int) ([]Migration, error) {
	history, err := m.History()
	if err != nil {
		return nil, err
	}
	current := 0
	if len(history) > 0 {
		current = history[len(history)-1].Version
	}
	if target < 0 || target >= current {
		return nil, fmt.Errorf("target version %d must be below current version %d", target, current)
	}

	known, err := m.byVersion()
	if err != nil {
		return nil, err
	}

	var reverted []Migration
	for i := len(history) - 1; i >= 0 && history[i].Version > target; i-- {
		mig, ok := known[history[i].Version]
		if !ok {
			return reverted, fmt.Errorf("migration %d is applied but has no script", history[i].Version)
		}
		if err := m.run(mig.Version, mig.Down, func(tx *sql.Tx) error {
			_, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE version = ?`, m.schema.history), mig.Version)
			return err
		}); err != nil {
			return reverted, fmt.Errorf("reverting migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		reverted = append(reverted, mig)
	}
	return reverted, nil
}

// Version is the highest applied migration, or 0 for an empty database
func (m *Migrator) Version() (int, error) {
	if err := m.ensureHistory(); err != nil {
		return 0, err
	}
	var version int
	err := m.db.QueryRow(fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) FROM %s`, m.schema.history)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// History lists applied migrations in version order
func (m *Migrator) History() ([]Applied, error) {
	if err := m.ensureHistory(); err != nil {
		return nil, err
	}

	rows, err := m.db.Query(fmt.Sprintf(`SELECT version, name, applied_at FROM %s ORDER BY version`, m.schema.history))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}
	defer rows.Close()

	var history []Applied
	for rows.Next() {
		var (
			a  Applied
			at string
		)
		if err := rows.Scan(&a.Version, &a.Name, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration history: %w", err)
		}
		if a.AppliedAt, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("bad applied_at for migration %d: %w", a.Version, err)
		}
		history = append(history, a)
	}
	return history, rows.Err()
}

// Pending lists migrations newer than the current version, oldest first
func (m *Migrator) Pending() ([]Migration, error) {
	current, err := m.Version()
	if err != nil {
		return nil, err
	}
	all, err := m.schema.Load()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, mig := range all {
		if mig.Version > current {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Tables lists the user tables of the database with their row counts,
// leaving out the history table and SQLite's internal tables
func (m *Migrator) Tables() ([]Table, error) {
	rows, err := m.db.Query(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != ? ORDER BY name`,
		m.schema.history,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		t := Table{Name: name}
		quoted := `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		if err := m.db.QueryRow(`SELECT COUNT(*) FROM ` + quoted).Scan(&t.Rows); err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", name, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (m *Migrator) byVersion() (map[int]Migration, error) {
	all, err := m.schema.Load()
	if err != nil {
		return nil, err
	}
	known := make(map[int]Migration, len(all))
	for _, mig := range all {
		known[mig.Version] = mig
	}
	return known, nil
}

func (m *Migrator) ensureHistory() error {
	_, err := m.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`, m.schema.history))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", m.schema.history, err)
	}
	return nil
}

// run executes script and the history update in one transaction
func (m *Migrator) run(version int, script string, record func(tx *sql.Tx) error) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("migration %d has no script for this direction", version)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("failed to update history: %w", err)
	}
	return tx.Commit()
}
