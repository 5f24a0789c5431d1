package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/metrics"
)

// SQLite stores the cache in a single table. Save rewrites the table in one
// transaction so the persisted state always matches a full snapshot.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates, if needed) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS summaries (
			url       TEXT PRIMARY KEY,
			title     TEXT NOT NULL DEFAULT '',
			summary   TEXT NOT NULL,
			cached_at TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// OpenSQLiteOrReset is OpenSQLite for a cache that must come up even when the
// file on disk is damaged. An existing file that cannot be initialized is
// renamed to <dbPath>.corrupt-<unixnano>, counted as a load failure, and a
// fresh database is created in its place.
func OpenSQLiteOrReset(dbPath string, log *slog.Logger, m *metrics.Metrics) (*SQLite, error) {
	s, err := OpenSQLite(dbPath)
	if err == nil {
		return s, nil
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		return nil, err
	}

	aside := fmt.Sprintf("%s.corrupt-%d", dbPath, time.Now().UnixNano())
	if renameErr := os.Rename(dbPath, aside); renameErr != nil {
		return nil, fmt.Errorf("%w (moving bad cache db aside: %v)", err, renameErr)
	}
	logger.OrDiscard(log).Warn("cache db unreadable, starting empty",
		slog.String("path", dbPath),
		slog.String("moved_to", aside),
		slog.Any("err", err),
	)
	m.CacheLoadFailure()

	return OpenSQLite(dbPath)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads every row. A row with an undecodable summary or timestamp fails the load.
func (s *SQLite) Load() (map[string]Entry, error) {
	rows, err := s.db.Query("SELECT url, title, summary, cached_at FROM summaries")
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var (
			url, title, summary, cachedAt string
			e                             Entry
		)
		if err := rows.Scan(&url, &title, &summary, &cachedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		if err := json.Unmarshal([]byte(summary), &e.Summary); err != nil {
			return nil, fmt.Errorf("decoding summary for %s: %w", url, err)
		}
		ts, err := ParseTimestamp(cachedAt)
		if err != nil {
			return nil, fmt.Errorf("decoding cached_at for %s: %w", url, err)
		}
		e.Title = title
		e.CachedAt = ts
		entries[url] = e
	}
	return entries, rows.Err()
}

func (s *SQLite) Save(entries map[string]Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM summaries"); err != nil {
		return fmt.Errorf("clearing summaries: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO summaries (url, title, summary, cached_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for url, e := range entries {
		summary, err := json.Marshal(e.Summary)
		if err != nil {
			return fmt.Errorf("encoding summary for %s: %w", url, err)
		}
		if _, err := stmt.Exec(url, e.Title, string(summary), e.CachedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting summary %s: %w", url, err)
		}
	}

	return tx.Commit()
}
