// Package watchlist is the persistence collaborator for the user's
// tracked tickers. The debate engine never touches it.
package watchlist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one tracked ticker.
type Entry struct {
	Ticker  string    `json:"ticker"`
	Name    string    `json:"name,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Store is a sqlite-backed watchlist.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the watchlist database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping watchlist db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS watchlist (
			ticker   TEXT PRIMARY KEY,
			name     TEXT,
			added_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create watchlist table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all tracked tickers, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ticker, name, added_at FROM watchlist ORDER BY added_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var name sql.NullString
		var addedAt int64
		if err := rows.Scan(&e.Ticker, &name, &addedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		e.Name = name.String
		e.AddedAt = time.Unix(addedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Add inserts a ticker; re-adding an existing ticker updates its name.
func (s *Store) Add(ctx context.Context, ticker, name string) (Entry, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return Entry{}, fmt.Errorf("ticker is required")
	}

	entry := Entry{Ticker: ticker, Name: name, AddedAt: time.Now()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (ticker, name, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(ticker) DO UPDATE SET name = excluded.name`,
		entry.Ticker, entry.Name, entry.AddedAt.Unix())
	if err != nil {
		return Entry{}, fmt.Errorf("add %s to watchlist: %w", ticker, err)
	}
	return entry, nil
}

// Remove deletes a ticker. Removing an absent ticker is not an error.
func (s *Store) Remove(ctx context.Context, ticker string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if _, err := s.db.ExecContext(ctx, "DELETE FROM watchlist WHERE ticker = ?", ticker); err != nil {
		return fmt.Errorf("remove %s from watchlist: %w", ticker, err)
	}
	return nil
}
