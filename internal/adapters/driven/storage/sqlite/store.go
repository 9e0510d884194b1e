package sqlite

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docmodel/internal/adapters/driven/storage/sqlite/migrations"
)

// dbFile is the database file name inside the data directory.
const dbFile = "recovery.db"

// Store is a SQLite database holding docmodel's local state. Port
// implementations are handed out through wrapper types sharing one
// connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the recovery database in dataDir
// and brings its schema up to date. An empty dataDir means
// ~/.docmodel/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docmodel", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, dbFile)
	// WAL lets a watching process read while another CLI invocation writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecoveryStore returns a recovery store whose keys are namespaced by prefix.
// The existing keys are indexed up front so HasCache never touches disk.
func (s *Store) RecoveryStore(prefix string) (*RecoveryStore, error) {
	return newRecoveryStore(s, prefix)
}

// migration is one numbered "NNN_name.up.sql" script.
type migration struct {
	version int
	name    string
}

// pendingMigrations lists the up scripts in fsys newer than applied,
// oldest first. Files without a numeric prefix are ignored.
func pendingMigrations(fsys fs.FS, applied int) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var pending []migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= applied {
			continue
		}
		pending = append(pending, migration{version: version, name: name})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })
	return pending, nil
}

// migrate applies every pending migration, each in its own transaction
// together with its schema_migrations row.
func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var applied int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	pending, err := pendingMigrations(fsys, applied)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := s.apply(fsys, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(fsys fs.FS, m migration) error {
	script, err := fs.ReadFile(fsys, m.name)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", m.name, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting migration %s: %w", m.name, err)
	}
	if _, err := tx.Exec(string(script)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("executing migration %s: %w", m.name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("recording migration %s: %w", m.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", m.name, err)
	}
	return nil
}
