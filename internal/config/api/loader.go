package api_config

import (
	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
)

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}

	shared.SetAppDefaults(v, "api")
	shared.SetDBDefaults(v, 20, 5)
	shared.SetKafkaDefaults(v, "kafka")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.metrics_addr", ":8081")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_ttl", "24h")
	v.SetDefault("auth.issuer", "safecode-crm")

	shared.SetRealtimeDefaults(v, shared.BackendMemory)

	v.SetDefault("outbox.tick", "1s")
	v.SetDefault("outbox.batch_limit", 100)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DB.DSN == "" {
		return nil, shared.ErrConfig("db.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, shared.ErrConfig("auth.jwt_secret is required")
	}
	if err := shared.ValidateRealtime(cfg.Realtime); err != nil {
		return nil, err
	}
	return &cfg, nil
}
