package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sashakosti/Go_Bot_Roulette/internal/config"
	"github.com/sashakosti/Go_Bot_Roulette/internal/logger"
	"github.com/sashakosti/Go_Bot_Roulette/internal/monitor"
	"github.com/sashakosti/Go_Bot_Roulette/internal/penalty"
	"github.com/sashakosti/Go_Bot_Roulette/internal/revolver"
	"github.com/sashakosti/Go_Bot_Roulette/internal/service"
	"github.com/sashakosti/Go_Bot_Roulette/internal/storage"
	"github.com/sashakosti/Go_Bot_Roulette/internal/telegram"
)

// ledger - хранилище вместе с обслуживанием подключения.
type ledger interface {
	service.Ledger
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Log.Errorw("bot stopped", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rev, err := revolver.New(cfg.Chambers)
	if err != nil {
		return err
	}
	calc, err := penalty.New(cfg.Chambers, cfg.PenaltyBaseMinutes())
	if err != nil {
		return err
	}

	store, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("cannot ping DB: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	logger.Log.Infow("✅ Connected to ledger", "driver", cfg.LedgerDriver)

	mon := monitor.NewMonitor("roulette")
	svc := service.New(rev, calc, store, service.WithMonitor(mon))

	bot, err := telegram.NewBot(cfg, svc)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Start(gctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.Log.Infow("metrics server started", "addr", cfg.MetricsAddr)
			return mon.Serve(gctx, cfg.MetricsAddr)
		})
	}
	return g.Wait()
}

func openLedger(ctx context.Context, cfg config.Config) (ledger, error) {
	switch cfg.LedgerDriver {
	case config.DriverSQLite:
		return storage.NewSQLite(cfg.SQLitePath)
	default:
		return storage.NewPostgres(ctx, cfg.PostgresDSN)
	}
}
