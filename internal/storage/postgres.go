package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS roulette_players (
	seq                   BIGSERIAL,
	player_id             BIGINT PRIMARY KEY,
	profile               JSONB NOT NULL DEFAULT '{}'::jsonb,
	shot_counter          INTEGER NOT NULL DEFAULT 0,
	miss_counter          INTEGER NOT NULL DEFAULT 0,
	dead_counter          INTEGER NOT NULL DEFAULT 0,
	total_penalty_seconds BIGINT NOT NULL DEFAULT 0,
	first_shot_at         TIMESTAMPTZ NOT NULL,
	last_shot_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS roulette_players_penalty_idx
	ON roulette_players (total_penalty_seconds DESC, seq);
`

const postgresColumns = `player_id, profile, shot_counter, miss_counter, dead_counter,
	total_penalty_seconds, first_shot_at, last_shot_at`

// Postgres - леджер игроков в PostgreSQL.
type Postgres struct {
	db  *pgxpool.Pool
	now Clock
}

// NewPostgres - Создание подключения
func NewPostgres(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	o := newOptions(opts)
	return &Postgres{db: pool, now: o.now}, nil
}

// Migrate создаёт таблицу, если её ещё нет.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

// Ping - проверка подключения к DB
func (s *Postgres) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	s.db.Close()
	return nil
}

// Find - ищем игрока по id
func (s *Postgres) Find(ctx context.Context, id int64) (*PlayerRecord, error) {
	row := s.db.QueryRow(ctx, "SELECT "+postgresColumns+" FROM roulette_players WHERE player_id = $1", id)
	p, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find player", err)
	}
	return p, nil
}

// Register - добавляем игрока с нулевой статистикой, если его ещё нет
func (s *Postgres) Register(ctx context.Context, id int64, profile Profile) error {
	raw, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	now := s.now()
	tag, err := s.db.Exec(ctx,
		`INSERT INTO roulette_players (player_id, profile, first_shot_at, last_shot_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (player_id) DO NOTHING`,
		id, string(raw), now)
	if err != nil {
		return unavailable("register player", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyRegistered
	}
	return nil
}

// RecordMiss - промах
func (s *Postgres) RecordMiss(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE roulette_players
		 SET shot_counter = shot_counter + 1,
		     miss_counter = miss_counter + 1,
		     last_shot_at = GREATEST(last_shot_at, $2)
		 WHERE player_id = $1`,
		id, s.now())
	if err != nil {
		return unavailable("record miss", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDeath - попадание, добавляем минуты мута в секундах
func (s *Postgres) RecordDeath(ctx context.Context, id int64, penaltyMinutes int) error {
	if err := checkPenalty(penaltyMinutes); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE roulette_players
		 SET shot_counter = shot_counter + 1,
		     dead_counter = dead_counter + 1,
		     total_penalty_seconds = total_penalty_seconds + $2,
		     last_shot_at = GREATEST(last_shot_at, $3)
		 WHERE player_id = $1`,
		id, int64(penaltyMinutes)*60, s.now())
	if err != nil {
		return unavailable("record death", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Erase удаляет игрока. Удаление отсутствующего игрока не ошибка.
func (s *Postgres) Erase(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM roulette_players WHERE player_id = $1", id); err != nil {
		return unavailable("erase player", err)
	}
	return nil
}

// EraseAll удаляет всех игроков.
func (s *Postgres) EraseAll(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM roulette_players"); err != nil {
		return unavailable("erase all players", err)
	}
	return nil
}

// ListRanked - все игроки по убыванию времени в муте
func (s *Postgres) ListRanked(ctx context.Context) ([]PlayerRecord, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+postgresColumns+" FROM roulette_players ORDER BY total_penalty_seconds DESC, seq ASC")
	if err != nil {
		return nil, unavailable("list players", err)
	}
	defer rows.Close()

	var players []PlayerRecord
	for rows.Next() {
		p, err := scanPostgres(rows)
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

func scanPostgres(row pgx.Row) (*PlayerRecord, error) {
	var p PlayerRecord
	var raw []byte
	err := row.Scan(&p.ID, &raw, &p.ShotCounter, &p.MissCounter, &p.DeadCounter,
		&p.TotalPenaltySeconds, &p.FirstShotAt, &p.LastShotAt)
	if err != nil {
		return nil, err
	}
	if p.Profile, err = decodeProfile(raw); err != nil {
		return nil, err
	}
	return &p, nil
}
