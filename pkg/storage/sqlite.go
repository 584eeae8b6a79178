package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"hermes/pkg/logger"
	"hermes/pkg/models"
)

// SQLiteBackend keeps the ledger in a SQLite database. Accounts are ordered by
// their insertion sequence, which preserves discovery order across saves.
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string, log logger.Logger) (*SQLiteBackend, error) {
	if log == nil {
		log = logger.WithComponent("storage")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	b := &SQLiteBackend{db: db, path: path, logger: log}
	if err := b.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		nickname TEXT,
		followers INTEGER DEFAULT 0,
		profile_url TEXT,
		video_url TEXT,
		verified INTEGER DEFAULT 0,
		discovered_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_followers ON accounts(followers);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- one row per polling run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		requests_sent INTEGER DEFAULT 0,
		candidates_examined INTEGER DEFAULT 0,
		rate_limit_hits INTEGER DEFAULT 0,
		found INTEGER DEFAULT 0
	);
	`
	_, err := b.db.ExecContext(context.Background(), schema)
	return err
}

// Path returns the database file
func (b *SQLiteBackend) Path() string {
	return b.path
}

// Load reads every account in insertion order
func (b *SQLiteBackend) Load(ctx context.Context) (*models.Snapshot, error) {
	rows, err := b.db.QueryContext(ctx, `
	SELECT username, nickname, followers, profile_url, video_url, verified, discovered_at
	FROM accounts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	snap := &models.Snapshot{}
	for rows.Next() {
		var a models.UserAccount
		var nickname, profileURL, videoURL sql.NullString
		var verified int
		var discoveredAt string
		if err := rows.Scan(&a.Username, &nickname, &a.Followers, &profileURL, &videoURL, &verified, &discoveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Nickname = nickname.String
		a.ProfileURL = profileURL.String
		a.VideoURL = videoURL.String
		a.Verified = verified != 0
		a.DiscoveredAt = parseTime(discoveredAt)
		snap.Accounts = append(snap.Accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	var updated sql.NullString
	err = b.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'last_updated'`).Scan(&updated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read last_updated: %w", err)
	}
	snap.LastUpdated = parseTime(updated.String)

	b.logger.InfoWithFields("State loaded", map[string]interface{}{
		"path":     b.path,
		"accounts": len(snap.Accounts),
	})
	return snap, nil
}

// Save replaces the stored ledger with snap in one transaction. Existing rows
// keep their sequence number so discovery order survives rewrites.
func (b *SQLiteBackend) Save(ctx context.Context, snap *models.Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep (username TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("failed to prepare save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep`); err != nil {
		return fmt.Errorf("failed to prepare save: %w", err)
	}

	upsert, err := tx.PrepareContext(ctx, `
	INSERT INTO accounts (username, nickname, followers, profile_url, video_url, verified, discovered_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET
		nickname = excluded.nickname,
		followers = excluded.followers,
		profile_url = excluded.profile_url,
		video_url = excluded.video_url,
		verified = excluded.verified,
		discovered_at = excluded.discovered_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer upsert.Close()

	for _, a := range snap.Accounts {
		verified := 0
		if a.Verified {
			verified = 1
		}
		if _, err := upsert.ExecContext(ctx, a.Username, a.Nickname, a.Followers, a.ProfileURL, a.VideoURL,
			verified, a.DiscoveredAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to save account %s: %w", a.Username, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep (username) VALUES (?)`, a.Username); err != nil {
			return fmt.Errorf("failed to save account %s: %w", a.Username, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE username NOT IN (SELECT username FROM keep)`); err != nil {
		return fmt.Errorf("failed to prune accounts: %w", err)
	}

	updated := snap.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO meta (key, value) VALUES ('last_updated', ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, updated.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save last_updated: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}

	b.logger.DebugWithFields("State saved", map[string]interface{}{
		"path":     b.path,
		"accounts": len(snap.Accounts),
	})
	return nil
}

// RecordRun stores the final counters of a polling run
func (b *SQLiteBackend) RecordRun(ctx context.Context, stats models.RunStatistics) error {
	_, err := b.db.ExecContext(ctx, `
	INSERT INTO runs (run_id, strategy, started_at, finished_at, requests_sent, candidates_examined, rate_limit_hits, found)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		finished_at = excluded.finished_at,
		requests_sent = excluded.requests_sent,
		candidates_examined = excluded.candidates_examined,
		rate_limit_hits = excluded.rate_limit_hits,
		found = excluded.found`,
		stats.RunID, stats.Strategy, stats.StartedAt.Format(time.RFC3339Nano), time.Now().Format(time.RFC3339Nano),
		stats.RequestsSent, stats.CandidatesExamined, stats.RateLimitHits, stats.Found)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RunCount returns the number of recorded runs
func (b *SQLiteBackend) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// Close closes the database
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
