package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// ErrChecksumMismatch means an applied migration file was edited afterwards.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// Migration is one numbered schema change.
type Migration struct {
	Version     int
	Description string
	UpSQL       string
	DownSQL     string
	Checksum    string
	Applied     bool
	AppliedAt   time.Time
}

// Migrator applies the embedded migrations to a DB.
type Migrator struct {
	db         *DB
	migrations []Migration
}

// NewMigrator loads the embedded migrations and ensures the bookkeeping
// table exists.
func NewMigrator(db *DB) (*Migrator, error) {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}
	return &Migrator{db: db, migrations: migrations}, nil
}

var migrationName = regexp.MustCompile(`^(\d{3})_(.+)\.sql$`)

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var out []Migration
	for _, e := range entries {
		m := migrationName.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		version, _ := strconv.Atoi(m[1])
		up, down := splitMigration(string(content))
		sum := sha256.Sum256(content)
		out = append(out, Migration{
			Version:     version,
			Description: strings.ReplaceAll(m[2], "_", " "),
			UpSQL:       up,
			DownSQL:     down,
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// splitMigration separates the Up and Down sections. A file without markers
// is all Up.
func splitMigration(content string) (up, down string) {
	upIdx := strings.Index(content, upMarker)
	downIdx := strings.Index(content, downMarker)
	switch {
	case upIdx < 0:
		return strings.TrimSpace(content), ""
	case downIdx < 0:
		return strings.TrimSpace(content[upIdx+len(upMarker):]), ""
	case upIdx < downIdx:
		return strings.TrimSpace(content[upIdx+len(upMarker) : downIdx]),
			strings.TrimSpace(content[downIdx+len(downMarker):])
	default:
		return strings.TrimSpace(content[upIdx+len(upMarker):]),
			strings.TrimSpace(content[downIdx+len(downMarker) : upIdx])
	}
}

// Migrations returns the embedded migrations in version order.
func (m *Migrator) Migrations() []Migration {
	return append([]Migration(nil), m.migrations...)
}

// CurrentVersion returns the highest applied version, 0 for a fresh database.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var v int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("querying current version: %w", err)
	}
	return v, nil
}

// Status reports every embedded migration with its applied state. It fails
// with ErrChecksumMismatch when an applied file no longer matches.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	type record struct {
		checksum string
		at       time.Time
	}
	applied := make(map[int]record)
	for rows.Next() {
		var v int
		var sum, at string
		if err := rows.Scan(&v, &sum, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		t, _ := time.Parse(time.RFC3339, at)
		applied[v] = record{checksum: sum, at: t}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migration rows: %w", err)
	}

	out := m.Migrations()
	for i := range out {
		rec, ok := applied[out[i].Version]
		if !ok {
			continue
		}
		if rec.checksum != out[i].Checksum {
			return nil, fmt.Errorf("%w: version %d", ErrChecksumMismatch, out[i].Version)
		}
		out[i].Applied = true
		out[i].AppliedAt = rec.at
	}
	return out, nil
}

// Pending returns the migrations not yet applied.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	all, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mig := range all {
		if !mig.Applied {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns the ones applied.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		m.db.logger.Debug("schema up to date")
		return nil, nil
	}

	var done []Migration
	for _, mig := range pending {
		m.db.logger.Info("applying migration", "version", mig.Version, "description", mig.Description)
		now := time.Now().UTC()
		err := m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := execScript(ctx, tx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, description, checksum, applied_at) VALUES (?, ?, ?, ?)",
				mig.Version, mig.Description, mig.Checksum, now.Format(time.RFC3339))
			return err
		})
		if err != nil {
			return done, fmt.Errorf("migration %d: %w", mig.Version, err)
		}
		mig.Applied = true
		mig.AppliedAt = now
		done = append(done, mig)
	}
	return done, nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) (*Migration, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	if current == 0 {
		return nil, errors.New("no migrations to roll back")
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == current {
			mig = &m.migrations[i]
		}
	}
	if mig == nil {
		return nil, fmt.Errorf("migration %d not found", current)
	}
	if mig.DownSQL == "" {
		return nil, fmt.Errorf("migration %d has no rollback", current)
	}

	m.db.logger.Info("rolling back migration", "version", mig.Version)
	err = m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := execScript(ctx, tx, mig.DownSQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mig.Version)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rollback %d: %w", mig.Version, err)
	}
	out := *mig
	return &out, nil
}

func execScript(ctx context.Context, tx *sql.Tx, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// splitStatements breaks a script on semicolons outside quotes and line
// comments. Comments are dropped.
func splitStatements(script string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   byte
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case comment:
			if ch == '\n' {
				comment = false
				cur.WriteByte(ch)
			}
		case quote != 0:
			cur.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			comment = true
		case ch == '\'' || ch == '"':
			quote = ch
			cur.WriteByte(ch)
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return out
}
