package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"code_tracker/internal/model"
	"code_tracker/migrations"
)

var tableName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB

	mu     sync.RWMutex
	tables map[string]string
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, tables: make(map[string]string)}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// EnsureGame creates the game's code table and seeds its checkpoint with the
// sentinel time. It is idempotent.
func (s *SQLite) EnsureGame(ctx context.Context, game model.GameConfig) error {
	if !tableName.MatchString(game.Table) {
		return fmt.Errorf("invalid table name %q", game.Table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			"key"   TEXT NOT NULL,
			reward  TEXT NOT NULL DEFAULT '',
			"time"  TEXT NOT NULL,
			url     TEXT NOT NULL DEFAULT '',
			"start" TEXT NOT NULL DEFAULT '',
			"end"   TEXT NOT NULL DEFAULT ''
		)`, game.Table),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q ("key") WHERE "key" <> ''`,
			"ux_"+game.Table+"_key", game.Table),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create code table %s: %w", game.Table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO checkpoints (game, last_check_time) VALUES (?, ?)`,
		game.ID, model.SentinelTimestamp,
	); err != nil {
		return fmt.Errorf("seed checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	s.tables[game.ID] = game.Table
	s.mu.Unlock()
	return nil
}

// Checkpoint returns the game's last check time, seeding the sentinel if the
// row is missing.
func (s *SQLite) Checkpoint(ctx context.Context, game string) (time.Time, error) {
	if _, err := s.table(game); err != nil {
		return time.Time{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO checkpoints (game, last_check_time) VALUES (?, ?)`,
		game, model.SentinelTimestamp,
	); err != nil {
		return time.Time{}, fmt.Errorf("seed checkpoint: %w", err)
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_check_time FROM checkpoints WHERE game = ?`, game,
	).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("query checkpoint: %w", err)
	}
	t, err := model.ParseTime(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkpoint %q: %w", raw, err)
	}
	return t, nil
}

// AdvanceCheckpoint moves the game's checkpoint to at. Moving backwards is a no-op.
func (s *SQLite) AdvanceCheckpoint(ctx context.Context, game string, at time.Time) error {
	if _, err := s.table(game); err != nil {
		return err
	}
	v := model.FormatTime(&at)
	_, err := s.db.ExecContext(ctx,
		`UPDATE checkpoints SET last_check_time = ? WHERE game = ? AND last_check_time < ?`,
		v, game, v,
	)
	if err != nil {
		return fmt.Errorf("advance checkpoint: %w", err)
	}
	return nil
}

// CodeExists checks whether key is already stored for the game.
func (s *SQLite) CodeExists(ctx context.Context, game, key string) (bool, error) {
	table, err := s.table(game)
	if err != nil {
		return false, err
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %q WHERE "key" = ?`, table), key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return count > 0, nil
}

// InsertCode stores rec and populates its ID. It returns false without
// writing when rec.Key is non-empty and already present. Records with an
// empty key are always inserted.
func (s *SQLite) InsertCode(ctx context.Context, game string, rec *model.CodeRecord) (bool, error) {
	table, err := s.table(game)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %q ("key", reward, "time", url, "start", "end")
		 VALUES (?, ?, ?, ?, ?, ?)`, table),
		rec.Key, rec.Reward, model.FormatTime(&rec.DiscoveredAt), rec.URL, rec.Start, rec.End,
	)
	if err != nil {
		return false, fmt.Errorf("insert code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return true, nil
}

// ListCodes returns all codes of the game, newest first.
func (s *SQLite) ListCodes(ctx context.Context, game string) ([]model.CodeRecord, error) {
	table, err := s.table(game)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, "key", reward, "time", url, "start", "end" FROM %q ORDER BY "time" DESC, id DESC`, table),
	)
	if err != nil {
		return nil, fmt.Errorf("query codes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var codes []model.CodeRecord
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (s *SQLite) table(game string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[game]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownGame, game)
	}
	return t, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCode(row scannable) (model.CodeRecord, error) {
	var c model.CodeRecord
	var discovered string
	err := row.Scan(&c.ID, &c.Key, &c.Reward, &discovered, &c.URL, &c.Start, &c.End)
	if err != nil {
		return c, fmt.Errorf("scan code: %w", err)
	}
	c.DiscoveredAt, _ = model.ParseTime(discovered)
	return c, nil
}
