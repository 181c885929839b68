package api_config

import (
	"time"

	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
	pg "github.com/NordCoder/safecode-crm/internal/repository/postgres"
)

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

type Outbox struct {
	Tick       time.Duration `mapstructure:"tick"`
	BatchLimit int           `mapstructure:"batch_limit"`
}

type Config struct {
	App      shared.App      `mapstructure:"app"`
	Log      shared.Log      `mapstructure:"log"`
	OTEL     shared.OTEL     `mapstructure:"otel"`
	Server   Server          `mapstructure:"server"`
	DB       pg.Config       `mapstructure:"db"`
	Auth     Auth            `mapstructure:"auth"`
	Realtime shared.Realtime `mapstructure:"realtime"`
	Kafka    shared.Kafka    `mapstructure:"kafka"`
	Outbox   Outbox          `mapstructure:"outbox"`
}
