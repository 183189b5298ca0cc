package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
)

// SQLiteStore is the durable single-instance variant: games survive process
// restarts in a local file without needing a Redis deployment. Pub/sub
// dispatches locally, like the memory variant.
type SQLiteStore struct {
	db    *sql.DB
	local *MemoryStore // reused for the local pub/sub plumbing

	mu sync.Mutex // serializes read-modify-write cycles
}

// NewSQLiteStore opens (or creates) the database file and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, local: NewMemoryStore()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("sqlite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_games_expires ON games(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func nowMs() int64 { return time.Now().UnixMilli() }

func (s *SQLiteStore) Get(ctx context.Context, id string) (*game.State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state FROM games WHERE id = ? AND expires_at > ?`, id, nowMs())
	var raw string
	if err := row.Scan(&raw); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", id, err)
	}
	var st game.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decoding game %s: %w", id, err)
	}
	return &st, nil
}

func (s *SQLiteStore) Create(ctx context.Context, id string, st *game.State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding game %s: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Expired rows count as absent.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, state, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, expires_at = excluded.expires_at
		WHERE games.expires_at <= ?`,
		id, string(data), nowMs()+ttl.Milliseconds(), nowMs())
	if err != nil {
		return fmt.Errorf("sqlite create %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn Transform, ttl time.Duration) (*game.State, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encoding game %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE games SET state = ?, expires_at = ? WHERE id = ?`,
		string(data), nowMs()+ttl.Milliseconds(), id); err != nil {
		return nil, fmt.Errorf("sqlite update %s: %w", id, err)
	}
	return st, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", id, err)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM games WHERE id = ? AND expires_at > ?`, id, nowMs())
	var one int
	if err := row.Scan(&one); err == sql.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) ScanIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM games WHERE expires_at > ?`, nowMs())
	if err != nil {
		return nil, fmt.Errorf("sqlite scan: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ReserveID(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.Exists(ctx, id); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (id, expires_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET expires_at = excluded.expires_at
		WHERE reservations.expires_at <= ?`,
		id, nowMs()+ttl.Milliseconds(), nowMs())
	if err != nil {
		return false, fmt.Errorf("sqlite reserve %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.local.Publish(ctx, channel, payload)
}

func (s *SQLiteStore) Subscribe(channel string, handler func([]byte)) (func(), error) {
	return s.local.Subscribe(channel, handler)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
