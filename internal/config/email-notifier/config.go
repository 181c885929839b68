package email_notifier_config

import (
	"time"

	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
	kafkax "github.com/NordCoder/safecode-crm/internal/repository/kafka"
)

type KafkaIn struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type SMTP struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App    shared.App  `mapstructure:"app"`
	Log    shared.Log  `mapstructure:"log"`
	OTEL   shared.OTEL `mapstructure:"otel"`
	In     KafkaIn     `mapstructure:"kafka_in"`
	SMTP   SMTP        `mapstructure:"smtp"`
	Server Server      `mapstructure:"server"`
}

func (k KafkaIn) AsConsumerConfig() *kafkax.ConsumerConfig {
	return &kafkax.ConsumerConfig{
		Brokers: k.Brokers,
		GroupID: k.GroupID,
		Topic:   k.Topic,
	}
}
