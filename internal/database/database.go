package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/stollenaar/numbercruncher/internal/frame"

	_ "github.com/marcboeker/go-duckdb/v2" // DuckDB Go driver
)

var (
	//go:embed changelog/*.sql
	changeLogFiles embed.FS
)

// Store is the working table of one analysis run, held in an in-memory
// DuckDB database that disappears on Close.
type Store struct {
	duckdbClient *sql.DB
	debug        bool
}

// Open creates a fresh in-memory database and applies the changelog.
func Open(ctx context.Context, debug bool) (*Store, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	s := &Store{duckdbClient: db, debug: debug}
	if err := s.initDuckDB(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.duckdbClient.Close()
}

func (s *Store) initDuckDB(ctx context.Context) error {
	// Ensure changelog table exists
	_, err := s.duckdbClient.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS database_changelog (
		id INTEGER PRIMARY KEY,
		name VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		checksum VARCHAR,
		success BOOLEAN DEFAULT TRUE
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create changelog table: %w", err)
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	entries, err := changeLogFiles.ReadDir("changelog")
	if err != nil {
		return fmt.Errorf("failed to read embedded changelogs: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)

	for i, file := range files {
		id := i + 1

		contents, err := changeLogFiles.ReadFile(path.Join("changelog", file))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		checksum := sha256.Sum256(contents)
		checksumHex := hex.EncodeToString(checksum[:])

		var appliedChecksum string
		err = s.duckdbClient.QueryRowContext(ctx, "SELECT checksum FROM database_changelog WHERE id = ?", id).Scan(&appliedChecksum)
		if err == nil {
			if appliedChecksum != checksumHex {
				return fmt.Errorf("checksum mismatch for migration %s (id=%d). File has changed", file, id)
			}
			continue
		}

		// Run changelogs in a transaction
		tx, err := s.duckdbClient.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin tx: %w", err)
		}

		_, err = tx.ExecContext(ctx, string(contents))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}

		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", file, err)
		}

		_, err = s.duckdbClient.ExecContext(ctx, `
			INSERT INTO database_changelog (id, name, applied_at, checksum, success)
			VALUES (?, ?, ?, ?, true)
		`, id, file, time.Now(), checksumHex)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		slog.Debug("applied migration", slog.String("file", file))
	}

	return nil
}

// LoadFrame inserts every row of the working table.
func (s *Store) LoadFrame(ctx context.Context, f frame.Frame) error {
	tx, err := s.duckdbClient.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO orders (id, created_at, hour, weekday, day) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range f.Rows {
		_, err = stmt.ExecContext(ctx, row.ID.String(), row.Timestamp.UTC(), row.Hour, row.Weekday, row.Day)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("error inserting order %s into duckdb: %w", row.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit orders: %w", err)
	}
	return nil
}

// QueryDuckDB runs a query, printing it with its parameters inlined when debugging.
func (s *Store) QueryDuckDB(ctx context.Context, query string, params ...any) (*sql.Rows, error) {
	if s.debug {
		interpolatedQuery := query
		for _, param := range params {
			var paramStr string
			switch v := param.(type) {
			case string:
				paramStr = fmt.Sprintf("'%s'", v)
			case time.Time:
				paramStr = fmt.Sprintf("'%s'", v.Format("2006-01-02 15:04:05"))
			default:
				paramStr = fmt.Sprintf("%v", v)
			}
			// Replace the first `?` with the actual value
			interpolatedQuery = strings.Replace(interpolatedQuery, "?", paramStr, 1)
		}

		slog.Debug("executing query", slog.String("query", interpolatedQuery))
	}

	return s.duckdbClient.QueryContext(ctx, query, params...)
}
