package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashakosti/Go_Bot_Roulette/internal/logger"
	"github.com/sashakosti/Go_Bot_Roulette/internal/monitor"
	"github.com/sashakosti/Go_Bot_Roulette/internal/penalty"
	"github.com/sashakosti/Go_Bot_Roulette/internal/revolver"
	"github.com/sashakosti/Go_Bot_Roulette/internal/storage"
)

// ErrStatsNotRecorded - выстрел случился, но статистика не сохранилась.
// Барабан при этом не откатывается: выстрел уже был.
var ErrStatsNotRecorded = errors.New("shot fired but stats not recorded")

// Ledger - хранилище статистики игроков.
type Ledger interface {
	Find(ctx context.Context, id int64) (*storage.PlayerRecord, error)
	Register(ctx context.Context, id int64, profile storage.Profile) error
	RecordMiss(ctx context.Context, id int64) error
	RecordDeath(ctx context.Context, id int64, penaltyMinutes int) error
	Erase(ctx context.Context, id int64) error
	EraseAll(ctx context.Context) error
	ListRanked(ctx context.Context) ([]storage.PlayerRecord, error)
}

// Revolver - барабаны чатов.
type Revolver interface {
	Fire(chatID int64) revolver.Shot
	Chats() int
}

// GameServiceInterface - то, что нужно телеграм-хендлерам.
type GameServiceInterface interface {
	Fire(ctx context.Context, chatID int64, player Player) (Outcome, error)
	GetLeaderboard(ctx context.Context) ([]storage.PlayerRecord, error)
	GetPlayerStats(ctx context.Context, playerID int64) (*storage.PlayerRecord, error)
	ForgetPlayer(ctx context.Context, playerID int64) error
	WipeAll(ctx context.Context) error
}

// Player - стреляющий игрок.
type Player struct {
	ID      int64
	Profile storage.Profile
}

// Outcome - что произошло при выстреле, транспорт по нему пишет в чат и выдаёт мут.
type Outcome struct {
	ShotID          uuid.UUID
	Died            bool
	PenaltyMinutes  int
	RemainingBefore int
	Reloaded        bool
}

// Penalty - длительность мута.
func (o Outcome) Penalty() time.Duration {
	return time.Duration(o.PenaltyMinutes) * time.Minute
}

type GameService struct {
	revolver Revolver
	penalty  penalty.Calculator
	ledger   Ledger
	monitor  *monitor.Monitor
}

type Option func(*GameService)

func WithMonitor(m *monitor.Monitor) Option {
	return func(g *GameService) {
		g.monitor = m
	}
}

func New(rev Revolver, calc penalty.Calculator, ledger Ledger, opts ...Option) *GameService {
	g := &GameService{
		revolver: rev,
		penalty:  calc,
		ledger:   ledger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fire - один выстрел игрока в чате.
//
// Игрок регистрируется при первом выстреле. Барабан и статистика обновляются
// независимо: сначала выстрел под замком чата, потом запись в базу уже без замка.
// Если база отвалилась после выстрела, возвращаем заполненный Outcome вместе с
// ErrStatsNotRecorded. Повторов нет: новый выстрел - только новая команда игрока.
func (g *GameService) Fire(ctx context.Context, chatID int64, player Player) (Outcome, error) {
	start := time.Now()
	defer func() { g.monitor.ObserveFireLatency(time.Since(start)) }()

	if err := g.ensureRegistered(ctx, player); err != nil {
		g.monitor.IncLedgerErrors("register")
		return Outcome{}, fmt.Errorf("register player %d: %w", player.ID, err)
	}

	shot := g.revolver.Fire(chatID)
	g.monitor.SetActiveChats(g.revolver.Chats())

	out := Outcome{
		ShotID:          uuid.New(),
		RemainingBefore: shot.RemainingBefore,
		Reloaded:        shot.Reloaded,
	}

	op := "record_miss"
	var err error
	if shot.Hit {
		op = "record_death"
		out.Died = true
		out.PenaltyMinutes = g.penalty.Minutes(shot.RemainingBefore)
		err = g.ledger.RecordDeath(ctx, player.ID, out.PenaltyMinutes)
	} else {
		err = g.ledger.RecordMiss(ctx, player.ID)
	}
	g.monitor.ObserveShot(out.Died, out.PenaltyMinutes)

	log := logger.Log.With(
		"shot_id", out.ShotID.String(),
		"chat_id", chatID,
		"player_id", player.ID,
		"died", out.Died,
		"remaining", out.RemainingBefore,
		"penalty_minutes", out.PenaltyMinutes,
	)
	if err != nil {
		g.monitor.IncLedgerErrors(op)
		log.Errorw("shot fired but stats not recorded", "error", err)
		return out, fmt.Errorf("%w: %w", ErrStatsNotRecorded, err)
	}
	log.Infow("shot fired")
	return out, nil
}

// ensureRegistered - регаем игрока, если его ещё нет. Гонка двух первых выстрелов
// безобидна: второй получит ErrAlreadyRegistered.
func (g *GameService) ensureRegistered(ctx context.Context, player Player) error {
	_, err := g.ledger.Find(ctx, player.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	err = g.ledger.Register(ctx, player.ID, player.Profile)
	if errors.Is(err, storage.ErrAlreadyRegistered) {
		return nil
	}
	return err
}

// GetLeaderboard - рейтинг по времени в муте
func (g *GameService) GetLeaderboard(ctx context.Context) ([]storage.PlayerRecord, error) {
	players, err := g.ledger.ListRanked(ctx)
	if err != nil {
		g.monitor.IncLedgerErrors("list_ranked")
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return players, nil
}

// GetPlayerStats - статистика одного игрока, storage.ErrNotFound если он не стрелял
func (g *GameService) GetPlayerStats(ctx context.Context, playerID int64) (*storage.PlayerRecord, error) {
	p, err := g.ledger.Find(ctx, playerID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.monitor.IncLedgerErrors("find")
		}
		return nil, err
	}
	return p, nil
}

// ForgetPlayer - игрок просит удалить свою статистику
func (g *GameService) ForgetPlayer(ctx context.Context, playerID int64) error {
	if err := g.ledger.Erase(ctx, playerID); err != nil {
		g.monitor.IncLedgerErrors("erase")
		return fmt.Errorf("failed to forget player %d: %w", playerID, err)
	}
	logger.Log.Infow("player forgotten", "player_id", playerID)
	return nil
}

// WipeAll - админ сносит всю статистику. Права проверяет транспорт.
func (g *GameService) WipeAll(ctx context.Context) error {
	if err := g.ledger.EraseAll(ctx); err != nil {
		g.monitor.IncLedgerErrors("erase_all")
		return fmt.Errorf("failed to wipe ledger: %w", err)
	}
	logger.Log.Warn("ledger wiped")
	return nil
}
