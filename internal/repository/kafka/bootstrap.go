package kafka

import (
	"context"
	"time"

	"github.com/NordCoder/safecode-crm/internal/obs/retry"
	"go.uber.org/zap"
)

// BootstrapConsumer creates the consumer's topic before the reader joins its
// group. A broker that stays unreachable is logged and the reader is built
// anyway; its fetch loop keeps retrying.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.L()
	}
	pol := retry.Policy{
		Name:     "kafka_topic",
		Attempts: 4,
		Backoff:  retry.ExpoJitter{Base: 250 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2},
	}
	spec := TopicSpec{Name: cfg.Topic, MaxWait: 5 * time.Second}
	if err := retry.Do(ctx, func() error {
		return EnsureTopic(ctx, cfg.Brokers, spec, logger)
	}, pol); err != nil {
		logger.Warn("ensure topic failed; consumer will keep retrying",
			zap.String("topic", cfg.Topic), zap.Error(err))
	}

	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	return NewConsumer(cfg)
}
