package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore is a durable hive backed by a single SQLite database
// file. Values live in one table keyed by (key, name), so a hive file
// can be inspected with any SQLite tooling.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once

	setStmt    *sql.Stmt
	getStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	keysStmt   *sql.Stmt
	valuesStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) a hive database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("hive path cannot be empty")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open hive: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize hive schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare hive statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS hive (
		key   TEXT NOT NULL,
		name  TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (key, name)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.setStmt, err = s.db.Prepare(`
		INSERT INTO hive (key, name, value) VALUES (?, ?, ?)
		ON CONFLICT (key, name) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare set statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT value FROM hive WHERE key = ? AND name = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM hive WHERE key = ?1 OR key LIKE ?2 ESCAPE '#'
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.keysStmt, err = s.db.Prepare(`
		SELECT DISTINCT key FROM hive WHERE key LIKE ?1 ESCAPE '#' ORDER BY key
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare keys statement: %w", err)
	}

	s.valuesStmt, err = s.db.Prepare(`
		SELECT name, value FROM hive WHERE key = ? ORDER BY name
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare values statement: %w", err)
	}

	return nil
}

// likeEscaper protects LIKE metacharacters in keys; '#' is declared as
// the escape character in every pattern-bearing statement.
var likeEscaper = strings.NewReplacer("#", "##", "%", "#%", "_", "#_")

// Set writes one value, creating the key as needed.
func (s *SQLiteStore) Set(ctx context.Context, key, name, data string) error {
	if _, err := s.setStmt.ExecContext(ctx, key, name, data); err != nil {
		return fmt.Errorf("failed to write hive value: %w", err)
	}
	return nil
}

// Get reads one value.
func (s *SQLiteStore) Get(ctx context.Context, key, name string) (string, bool, error) {
	var data string
	err := s.getStmt.QueryRowContext(ctx, key, name).Scan(&data)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read hive value: %w", err)
	}
	return data, true, nil
}

// DeleteKey removes a key and its whole subtree.
func (s *SQLiteStore) DeleteKey(ctx context.Context, key string) error {
	subtree := likeEscaper.Replace(key) + Separator + "%"
	if _, err := s.deleteStmt.ExecContext(ctx, key, subtree); err != nil {
		return fmt.Errorf("failed to delete hive key: %w", err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.keysStmt.QueryContext(ctx, likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list hive keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan hive key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hive keys: %w", err)
	}
	return out, nil
}

// Values lists the values under one key, sorted by name.
func (s *SQLiteStore) Values(ctx context.Context, key string) ([]Value, error) {
	rows, err := s.valuesStmt.QueryContext(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list hive values: %w", err)
	}
	defer rows.Close()

	var out []Value
	for rows.Next() {
		v := Value{Key: key}
		if err := rows.Scan(&v.Name, &v.Data); err != nil {
			return nil, fmt.Errorf("failed to scan hive value: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hive values: %w", err)
	}
	return out, nil
}

// Close releases the hive. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.setStmt, s.getStmt, s.deleteStmt, s.keysStmt, s.valuesStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}
