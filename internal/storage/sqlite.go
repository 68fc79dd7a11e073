package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath - SQLite в памяти процесса, для тестов и локального запуска.
const MemoryPath = ":memory:"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS roulette_players (
		seq                   INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id             INTEGER NOT NULL UNIQUE,
		profile               TEXT NOT NULL DEFAULT '{}',
		shot_counter          INTEGER NOT NULL DEFAULT 0,
		miss_counter          INTEGER NOT NULL DEFAULT 0,
		dead_counter          INTEGER NOT NULL DEFAULT 0,
		total_penalty_seconds INTEGER NOT NULL DEFAULT 0,
		first_shot_at         INTEGER NOT NULL,
		last_shot_at          INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS roulette_players_penalty_idx
		ON roulette_players (total_penalty_seconds DESC, seq);`,
}

const sqliteColumns = `player_id, profile, shot_counter, miss_counter, dead_counter,
	total_penalty_seconds, first_shot_at, last_shot_at`

// SQLite - встроенный леджер игроков, время хранится в unix-миллисекундах.
type SQLite struct {
	db  *sql.DB
	now Clock
}

// NewSQLite открывает базу по пути path, создавая каталог при необходимости.
func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// одно соединение: in-memory база живёт внутри соединения, а запись в SQLite всё равно последовательна
	db.SetMaxOpenConns(1)

	o := newOptions(opts)
	return &SQLite{db: db, now: o.now}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	for _, q := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return unavailable("migrate", err)
		}
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Find(ctx context.Context, id int64) (*PlayerRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM roulette_players WHERE player_id = ?", id)
	p, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find player", err)
	}
	return p, nil
}

func (s *SQLite) Register(ctx context.Context, id int64, profile Profile) error {
	raw, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	now := s.now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO roulette_players (player_id, profile, first_shot_at, last_shot_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (player_id) DO NOTHING`,
		id, string(raw), now, now)
	if err != nil {
		return unavailable("register player", err)
	}
	return affected(res, ErrAlreadyRegistered, "register player")
}

func (s *SQLite) RecordMiss(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE roulette_players
		 SET shot_counter = shot_counter + 1,
		     miss_counter = miss_counter + 1,
		     last_shot_at = MAX(last_shot_at, ?)
		 WHERE player_id = ?`,
		s.now().UnixMilli(), id)
	if err != nil {
		return unavailable("record miss", err)
	}
	return affected(res, ErrNotFound, "record miss")
}

func (s *SQLite) RecordDeath(ctx context.Context, id int64, penaltyMinutes int) error {
	if err := checkPenalty(penaltyMinutes); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE roulette_players
		 SET shot_counter = shot_counter + 1,
		     dead_counter = dead_counter + 1,
		     total_penalty_seconds = total_penalty_seconds + ?,
		     last_shot_at = MAX(last_shot_at, ?)
		 WHERE player_id = ?`,
		int64(penaltyMinutes)*60, s.now().UnixMilli(), id)
	if err != nil {
		return unavailable("record death", err)
	}
	return affected(res, ErrNotFound, "record death")
}

func (s *SQLite) Erase(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM roulette_players WHERE player_id = ?", id); err != nil {
		return unavailable("erase player", err)
	}
	return nil
}

func (s *SQLite) EraseAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM roulette_players"); err != nil {
		return unavailable("erase all players", err)
	}
	return nil
}

func (s *SQLite) ListRanked(ctx context.Context) ([]PlayerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM roulette_players ORDER BY total_penalty_seconds DESC, seq ASC")
	if err != nil {
		return nil, unavailable("list players", err)
	}
	defer rows.Close()

	var players []PlayerRecord
	for rows.Next() {
		p, err := scanSQLite(rows)
		if err != nil {
			return nil, unavailable("list players", err)
		}
		players = append(players, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list players", err)
	}
	return players, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (*PlayerRecord, error) {
	var p PlayerRecord
	var raw string
	var first, last int64
	err := row.Scan(&p.ID, &raw, &p.ShotCounter, &p.MissCounter, &p.DeadCounter,
		&p.TotalPenaltySeconds, &first, &last)
	if err != nil {
		return nil, err
	}
	if p.Profile, err = decodeProfile([]byte(raw)); err != nil {
		return nil, err
	}
	p.FirstShotAt = time.UnixMilli(first).UTC()
	p.LastShotAt = time.UnixMilli(last).UTC()
	return &p, nil
}

// affected превращает "ноль затронутых строк" в ошибку none.
func affected(res sql.Result, none error, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(op, err)
	}
	if n == 0 {
		return none
	}
	return nil
}
