package main

import (
	"context"
	"log"
	"strings"
	"time"

	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/NordCoder/safecode-crm/internal/obs/retry"
	kafkaRepo "github.com/NordCoder/safecode-crm/internal/repository/kafka"
	"go.uber.org/zap"
)

// Creates the topics the pipeline writes to. Settings come from env:
// KAFKA_BROKERS, KAFKA_TOPICS, KAFKA_PARTITIONS, KAFKA_RF.
func main() {
	v, err := shared.NewViper("")
	if err != nil {
		log.Fatal(err)
	}
	shared.SetAppDefaults(v, "kafka-init")
	shared.SetKafkaDefaults(v, "kafka")
	v.SetDefault("kafka.topics", shared.EmailTopic)
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.rf", 1)

	l, err := obs.NewLogger(obs.LogConfig{Level: v.GetString("log.level"), App: "safecode-crm/kafka-init"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	brokers := v.GetStringSlice("kafka.brokers")
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pol := retry.Policy{
		Name:     "kafka_init",
		Attempts: 8,
		Backoff:  retry.ExpoJitter{Base: 250 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		OnAttempt: func(i int, err error) {
			l.Warn("kafka not ready", zap.Int("attempt", i+1), zap.Error(err))
		},
	}

	for _, t := range strings.Split(v.GetString("kafka.topics"), ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		spec := kafkaRepo.TopicSpec{
			Name:              t,
			NumPartitions:     v.GetInt("kafka.partitions"),
			ReplicationFactor: v.GetInt("kafka.rf"),
			MaxWait:           30 * time.Second,
		}
		if err := retry.Do(ctx, func() error {
			return kafkaRepo.EnsureTopic(ctx, brokers, spec, l)
		}, pol); err != nil {
			l.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
	}
	l.Info("kafka-init ok", zap.Strings("brokers", brokers))
}
