package reminder_config

import (
	"time"

	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
	pg "github.com/NordCoder/safecode-crm/internal/repository/postgres"
)

type SchedCfg struct {
	At          string `mapstructure:"at"`
	Location    string `mapstructure:"location"`
	Thresholds  []int  `mapstructure:"thresholds"`
	RunOnStart  bool   `mapstructure:"run_on_start"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Outbox struct {
	Tick       time.Duration `mapstructure:"tick"`
	BatchLimit int           `mapstructure:"batch_limit"`
}

type Config struct {
	App      shared.App      `mapstructure:"app"`
	Log      shared.Log      `mapstructure:"log"`
	OTEL     shared.OTEL     `mapstructure:"otel"`
	DB       pg.Config       `mapstructure:"db"`
	Kafka    shared.Kafka    `mapstructure:"kafka"`
	Realtime shared.Realtime `mapstructure:"realtime"`
	Sched    SchedCfg        `mapstructure:"sched"`
	Outbox   Outbox          `mapstructure:"outbox"`
}
