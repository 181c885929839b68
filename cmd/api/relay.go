package main

import (
	"time"

	config "github.com/NordCoder/safecode-crm/internal/config/api"
	"github.com/NordCoder/safecode-crm/internal/obs/retry"
	"github.com/NordCoder/safecode-crm/internal/outbox"
	"github.com/NordCoder/safecode-crm/internal/repository/kafka"
	pg "github.com/NordCoder/safecode-crm/internal/repository/postgres"
	"go.uber.org/zap"
)

const (
	relayWorkers       = 2
	relayInProgressTTL = 30 * time.Second
)

// buildRelay moves queued email requests from the outbox table to Kafka.
func buildRelay(cfg *config.Config, logger *zap.Logger, repo *pg.OutboxRepo) (*outbox.Runner, *kafka.Producer) {
	prod := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	dispatch := outbox.MakeGlobalOutboxHandler(kafka.NewEmailEventsKafka(prod), retry.PublishPolicy(logger))
	runner := outbox.NewOutboxRunner(logger, repo, dispatch,
		relayWorkers, cfg.Outbox.BatchLimit, cfg.Outbox.Tick, relayInProgressTTL)
	return runner, prod
}
