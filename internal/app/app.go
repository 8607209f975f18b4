package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ranne1/guitar-codes/internal/game"
	"github.com/ranne1/guitar-codes/internal/handler"
	"github.com/ranne1/guitar-codes/internal/logger"
	"github.com/ranne1/guitar-codes/internal/service"
	"github.com/ranne1/guitar-codes/internal/storage"
	"github.com/ranne1/guitar-codes/internal/ws"
	"go.uber.org/zap"
)

var ErrUnknownDriver = errors.New("unknown store driver")

type App struct {
	cfg     Config
	log     *zap.Logger
	closers []func()
	srv     *http.Server
}

func New(cfg Config) (*App, error) {
	cfg = cfg.withDefaults()

	l, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := &App{cfg: cfg, log: l}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	rec := service.NewRecordService(store, service.Config{LedgerCap: cfg.LedgerCap}, l)
	lb := service.NewLeaderboardService(store, cfg.LedgerCap, l)
	sessions := game.NewSessionManager(rec, game.Options{MaxTime: cfg.RoundTime})
	hub := ws.NewHub(sessions, l)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	a.closers = append(a.closers, stopSweep)
	go a.sweepSessions(sweepCtx, sessions)

	mux := http.NewServeMux()
	handler.RegisterHandlers(mux, rec, lb, l)
	handler.RegisterSessionHandlers(mux, sessions, hub, l)

	a.srv = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (storage.ScoreStore, error) {
	switch a.cfg.StoreDriver {
	case DriverMemory:
		return storage.NewMemoryScoreStore(), nil

	case DriverFile:
		s := storage.NewFileScoreStore(a.cfg.ScoresFile)
		a.log.Info("using file score store", zap.String("path", s.Path()))
		return s, nil

	case DriverSQLite:
		s, err := storage.OpenSQLiteScoreStore(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil

	case DriverPostgres:
		if a.cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		db, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		s := storage.NewPostgresScoreStore(db)
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate score ledgers: %w", err)
		}
		return s, nil

	case DriverRedis:
		if a.cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis driver")
		}
		s, err := storage.NewRedisScoreStore(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, a.cfg.StoreDriver)
}

// sweepSessions drops sessions whose game screen never connected.
func (a *App) sweepSessions(ctx context.Context, sessions *game.SessionManager) {
	interval := a.cfg.SessionGrace / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.SweepDetached(a.cfg.SessionGrace); n > 0 {
				a.log.Info("detached sessions dropped", zap.Int("count", n))
			}
		}
	}
}

// Handler exposes the routed mux, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler
}

func (a *App) Run() error {
	a.log.Info("server started",
		zap.String("addr", a.cfg.HTTPAddr),
		zap.String("store_driver", a.cfg.StoreDriver),
		zap.String("log_level", a.cfg.LogLevel),
		zap.String("log_file", a.cfg.LogFile),
	)
	return a.srv.ListenAndServe()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.log != nil {
		_ = a.log.Sync()
	}
}
