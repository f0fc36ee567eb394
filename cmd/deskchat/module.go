package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/archive"
	"github.com/matheus3301/deskchat/internal/auth"
	"github.com/matheus3301/deskchat/internal/backend"
	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/chat"
	"github.com/matheus3301/deskchat/internal/config"
	"github.com/matheus3301/deskchat/internal/control"
	"github.com/matheus3301/deskchat/internal/lock"
	"github.com/matheus3301/deskchat/internal/logging"
	"github.com/matheus3301/deskchat/internal/metrics"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/profile"
	"github.com/matheus3301/deskchat/internal/realtime"
	"github.com/matheus3301/deskchat/internal/store"
	"github.com/matheus3301/deskchat/internal/tui"
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	Profile string
	Debug   bool
}

// Module composes every provider and lifecycle hook of the chat client.
func Module(p Params) fx.Option {
	return fx.Module("deskchat",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideIdentity,
			provideBus,
			provideLock,
			provideStore,
			provideRecorder,
			provideBackend,
			provideDialer,
			provideController,
			provideControlServer,
			provideMetricsServer,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

// Logger routes fx's own events into the profile log instead of stderr.
func Logger() fx.Option {
	return fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	})
}

func provideConfig(p Params) (*config.Config, error) {
	return profile.LoadConfig(p.Profile)
}

func provideLogger(p Params) (*zap.Logger, error) {
	level := zap.InfoLevel
	if p.Debug {
		level = zap.DebugLevel
	}
	return logging.New(profile.LogPath(p.Profile), p.Profile, logging.Options{Console: false, Level: level})
}

func provideIdentity(cfg *config.Config, logger *zap.Logger) (model.Identity, error) {
	ident, err := auth.Identity(cfg.Token, cfg.UserID, cfg.Username, cfg.Avatar, time.Now())
	if err != nil {
		return model.Identity{}, err
	}
	logger.Info("merchant identity resolved", zap.String("user_id", ident.UserID), zap.String("username", ident.Username))
	return ident, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(profile.Dir(p.Profile), p.Profile)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// The lock parameter orders the archive open after the lock is held.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	path := profile.ArchivePath(p.Profile)
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("archive ready",
		zap.String("path", path),
		zap.Uint("version", result.Version),
		zap.Bool("migrated", result.Changed),
	)
	return db, nil
}

func provideRecorder(db *store.DB, b *bus.Bus, logger *zap.Logger) *archive.Recorder {
	return archive.NewRecorder(db, b, logger)
}

func provideBackend(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.New(backend.Options{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout(),
		Logger:  logger,
	})
}

func provideDialer(cfg *config.Config, logger *zap.Logger) *realtime.Dialer {
	return &realtime.Dialer{
		URL:              cfg.SocketURL,
		Token:            cfg.Token,
		HandshakeTimeout: cfg.RequestTimeout(),
		Logger:           logger,
	}
}

func provideController(cfg *config.Config, ident model.Identity, client *backend.Client, d *realtime.Dialer, b *bus.Bus, logger *zap.Logger) *chat.Controller {
	return chat.New(chat.Options{
		Identity: ident,
		Backend:  client,
		Dial: func(ctx context.Context) (chat.Transport, error) {
			conn, err := d.Dial(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		Bus:        b,
		Logger:     logger,
		TypingIdle: cfg.TypingIdle(),
	})
}

func provideControlServer(p Params, _ *lock.Lock, ctrl *chat.Controller, b *bus.Bus, logger *zap.Logger) (*control.Server, error) {
	svc := control.NewService(p.Profile, ctrl, b, logger)
	return control.NewServer(profile.SocketPath(p.Profile), svc, logger)
}

// metricsServer is nil-safe; it does nothing when metrics_addr is unset.
type metricsServer struct {
	srv *http.Server
	log *zap.Logger
}

func provideMetricsServer(cfg *config.Config, logger *zap.Logger) *metricsServer {
	if cfg.MetricsAddr == "" {
		return &metricsServer{log: logger}
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &metricsServer{
		srv: &http.Server{Addr: cfg.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second},
		log: logger,
	}
}

func (m *metricsServer) start() {
	if m.srv == nil {
		return
	}
	go func() {
		m.log.Info("metrics endpoint listening", zap.String("addr", m.srv.Addr))
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
}

func (m *metricsServer) stop(ctx context.Context) {
	if m.srv == nil {
		return
	}
	_ = m.srv.Shutdown(ctx)
}

func provideTUI(p Params, ctrl *chat.Controller, client *backend.Client, db *store.DB, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.NewApp(tui.Options{
		Profile: p.Profile,
		Chat:    ctrl,
		FAQ:     client,
		Archive: db,
		Bus:     b,
		Logger:  logger,
	})
}

func registerLifecycle(
	lc fx.Lifecycle,
	lk *lock.Lock,
	db *store.DB,
	recorder *archive.Recorder,
	ctrl *chat.Controller,
	srv *control.Server,
	ms *metricsServer,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// The recorder subscribes before the controller can publish.
			recorder.Start(context.Background())
			ctrl.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("control server error", zap.Error(err))
				}
			}()
			ms.start()

			logger.Info("deskchat started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			ctrl.Stop()
			recorder.Stop()
			ms.stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing archive", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("deskchat stopped")
			return nil
		},
	})
}
