package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/NordCoder/safecode-crm/internal/auth"
	config "github.com/NordCoder/safecode-crm/internal/config/api"
	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/NordCoder/safecode-crm/internal/outbox"
	"github.com/NordCoder/safecode-crm/internal/realtime"
	pg "github.com/NordCoder/safecode-crm/internal/repository/postgres"
	"github.com/NordCoder/safecode-crm/internal/services/api"
	"github.com/NordCoder/safecode-crm/internal/services/crm"
	"github.com/NordCoder/safecode-crm/internal/services/emitter"
	"github.com/NordCoder/safecode-crm/internal/services/gateway"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("realtime", cfg.Realtime.Backend),
	)

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := initDB(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// realtime
	var node *realtime.Node
	if cfg.Realtime.Backend == shared.BackendRedis {
		node, err = realtime.NewRedisNode(rootCtx, cfg.Realtime.Buffer, cfg.Realtime.Redis, logger)
		if err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
	} else {
		node = realtime.NewMemoryNode(cfg.Realtime.Buffer, logger)
	}
	defer func() { _ = node.Close() }()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		if err := db.Health(ctx); err != nil {
			return err
		}
		return node.Health(ctx)
	}, logger)

	// wiring
	users := pg.NewUserRepo(db)
	objects := pg.NewWorkObjectRepo(db)
	notifications := pg.NewNotificationRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)

	events := emitter.New(notifications, users, objects, node.Publisher, outbox.NewMailQueue(outboxRepo), logger)
	svc := crm.New(
		pg.NewTransactor(db, logger),
		users,
		objects,
		pg.NewBillingRepo(db),
		pg.NewPurchaseRepo(db),
		events,
		nil,
	)
	sessions := auth.NewAuthenticator(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.Issuer), users)

	rest := api.NewServer(api.Deps{
		Sessions:      sessions,
		Credentials:   users,
		Notifications: notifications,
		CRM:           svc,
		Log:           logger,
	})
	ws := gateway.NewHandler(sessions, node.Hub, cfg.Server.CORSOrigins, gateway.DefaultTiming(), logger)
	httpSrv := buildHTTPServer(cfg, buildRouter(cfg, logger, rest, ws))

	relay, prod := buildRelay(cfg, logger, outboxRepo)
	defer func() { _ = prod.Close() }()

	// run
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	nodeErrCh := make(chan error, 1)
	go func() { nodeErrCh <- node.Run(rootCtx) }()

	relayCtx, stopRelay := context.WithCancel(rootCtx)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = relay.Run(relayCtx)
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr = <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	case runErr = <-nodeErrCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("realtime relay", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	stopRelay()
	<-relayDone
	_ = ms.Shutdown(shCtx)
	logger.Info("bye")
}
