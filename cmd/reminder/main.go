package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/safecode-crm/internal/config/reminder"
	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/NordCoder/safecode-crm/internal/obs/retry"
	"github.com/NordCoder/safecode-crm/internal/outbox"
	"github.com/NordCoder/safecode-crm/internal/realtime"
	kafkaRepo "github.com/NordCoder/safecode-crm/internal/repository/kafka"
	pg "github.com/NordCoder/safecode-crm/internal/repository/postgres"
	"github.com/NordCoder/safecode-crm/internal/services/emitter"
	"github.com/NordCoder/safecode-crm/internal/services/reminder"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// init
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	sched, err := reminder.ParseSchedule(cfg.Sched.At, cfg.Sched.Location)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting reminder",
		zap.String("at", cfg.Sched.At),
		zap.String("location", cfg.Sched.Location),
		zap.Ints("thresholds", cfg.Sched.Thresholds),
		zap.String("metrics_addr", cfg.Sched.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	prometheus.MustRegister(db.Collector())

	// realtime
	var node *realtime.Node
	if cfg.Realtime.Backend == shared.BackendRedis {
		if node, err = realtime.NewRedisNode(ctx, cfg.Realtime.Buffer, cfg.Realtime.Redis, l); err != nil {
			l.Fatal("redis connect", zap.Error(err))
		}
	} else {
		node = realtime.NewMemoryNode(cfg.Realtime.Buffer, l)
	}
	defer func() { _ = node.Close() }()

	// kafka
	kafkaProd := kafkaRepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(l)
	defer func() { _ = kafkaProd.Close() }()

	// run metrics server
	ms := obs.BootstrapMetricsServer(cfg.Sched.MetricsAddr, func(ctx context.Context) error {
		if err := db.Health(ctx); err != nil {
			return err
		}
		return node.Health(ctx)
	}, l)

	// wiring
	users := pg.NewUserRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)
	mail := outbox.NewMailQueue(outboxRepo)
	events := emitter.New(pg.NewNotificationRepo(db), users, pg.NewWorkObjectRepo(db), node.Publisher, mail, l)

	uc := reminder.NewUC(pg.NewPurchaseRepo(db), users, events, mail, cfg.Sched.Thresholds, sched.Location, l)
	runner := reminder.New(l, uc, sched, cfg.Sched.RunOnStart)

	dispatch := outbox.MakeGlobalOutboxHandler(kafkaRepo.NewEmailEventsKafka(kafkaProd), retry.PublishPolicy(l))
	relay := outbox.NewOutboxRunner(l, outboxRepo, dispatch, 1, cfg.Outbox.BatchLimit, cfg.Outbox.Tick, 30*time.Second)

	// run
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = relay.Run(ctx)
	}()

	l.Info("reminder started", zap.Time("next_run", sched.Next(time.Now())))

	// loop
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}
	stop()
	<-relayDone

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
