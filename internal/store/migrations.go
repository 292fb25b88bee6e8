package store

import (
	"database/sql"
	"fmt"
	"regexp"
)

// MigrationKind is a closed sum describing how a migration applies.
type MigrationKind int

const (
	// Standard executes the SQL batch unconditionally.
	Standard MigrationKind = iota
	// AddColumn executes only if Column is absent from Table.
	AddColumn
	// DropColumn executes only if Column is present on Table.
	DropColumn
)

// Migration is one versioned schema change. Version must be strictly
// increasing across the declared list; applied versions are recorded
// in _migrations regardless of whether an AddColumn/DropColumn's SQL
// actually ran, so idempotent re-application only records, never
// re-executes.
type Migration struct {
	Version     int
	Description string
	Kind        MigrationKind
	Table       string
	Column      string
	SQL         string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// migrations is the full ordered schema history. New migrations are
// appended; existing entries are never edited once released.
var migrations = []Migration{
	{
		Version:     1,
		Description: "create jobs table",
		Kind:        Standard,
		SQL: `CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			original_filename TEXT NOT NULL,
			current_path TEXT NOT NULL,
			archive_path TEXT,
			output_path TEXT,
			category TEXT NOT NULL DEFAULT 'unsorted',
			source TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			completed_at TEXT,
			symlinks TEXT,
			phase TEXT,
			message TEXT,
			mime_type TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
		CREATE INDEX IF NOT EXISTS idx_jobs_category ON jobs(category);
		CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source);
		CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);`,
	},
	{
		Version:     2,
		Description: "create processed_emails table",
		Kind:        Standard,
		SQL: `CREATE TABLE IF NOT EXISTS processed_emails (
			source TEXT NOT NULL,
			uidvalidity INTEGER NOT NULL,
			uid INTEGER NOT NULL,
			processed_at TEXT NOT NULL,
			PRIMARY KEY (source, uidvalidity, uid)
		);`,
	},
	{
		Version:     3,
		Description: "create oauth_tokens table",
		Kind:        Standard,
		SQL: `CREATE TABLE IF NOT EXISTS oauth_tokens (
			source TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			expires_at TEXT NOT NULL
		);`,
	},
	{
		Version:     4,
		Description: "add mime_type to jobs",
		Kind:        AddColumn,
		Table:       "jobs",
		Column:      "mime_type",
		SQL:         `ALTER TABLE jobs ADD COLUMN mime_type TEXT;`,
	},
	{
		Version:     5,
		Description: "drop ocr_text from jobs",
		Kind:        DropColumn,
		Table:       "jobs",
		Column:      "ocr_text",
		SQL:         `ALTER TABLE jobs DROP COLUMN ocr_text;`,
	},
	{
		Version:     6,
		Description: "create processing_stats table",
		Kind:        Standard,
		SQL: `CREATE TABLE IF NOT EXISTS processing_stats (
			date TEXT PRIMARY KEY,
			total_processed INTEGER NOT NULL DEFAULT 0
		);`,
	},
	{
		// The distilled spec's Job model keeps an optional extracted
		// text field that the original schema's migration 5 dropped;
		// this migration restores it under its new name so on-demand
		// re-OCR (see the OCR re-extraction open question) has
		// somewhere to write.
		Version:     7,
		Description: "add extracted_text to jobs",
		Kind:        AddColumn,
		Table:       "jobs",
		Column:      "extracted_text",
		SQL:         `ALTER TABLE jobs ADD COLUMN extracted_text TEXT;`,
	},
}

// RunMigrations ensures _migrations exists and applies every
// declared migration strictly greater than the current max version,
// in order. AddColumn/DropColumn steps are skipped when the schema
// already reflects them, but the version is always recorded so a
// second run is a no-op.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`); err != nil {
		return fmt.Errorf("creating _migrations table: %w", err)
	}

	var maxVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM _migrations`)
	if err := row.Scan(&maxVersion); err != nil {
		return fmt.Errorf("reading current migration version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= maxVersion {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	switch m.Kind {
	case AddColumn:
		exists, err := columnExists(tx, m.Table, m.Column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := tx.Exec(m.SQL); err != nil {
				return err
			}
		}
	case DropColumn:
		exists, err := columnExists(tx, m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			if _, err := tx.Exec(m.SQL); err != nil {
				return err
			}
		}
	default:
		if _, err := tx.Exec(m.SQL); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`INSERT INTO _migrations (version, description) VALUES (?, ?)`, m.Version, m.Description); err != nil {
		return err
	}
	return tx.Commit()
}

// columnExists validates table against identifierPattern before
// interpolating it into a PRAGMA query — PRAGMA statements do not
// accept bound parameters for identifiers.
func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	if !identifierPattern.MatchString(table) {
		return false, fmt.Errorf("invalid table identifier %q", table)
	}
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return false, err
	}
	dest := make([]any, len(cols))
	scratch := make([]sql.RawBytes, len(cols))
	nameIdx := -1
	for i, c := range cols {
		if c == "name" {
			nameIdx = i
		}
		dest[i] = &scratch[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return false, err
		}
		if nameIdx >= 0 && string(scratch[nameIdx]) == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
