package reminder_config

import (
	"time"

	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
)

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}

	shared.SetAppDefaults(v, "reminder")
	shared.SetDBDefaults(v, 10, 2)
	shared.SetKafkaDefaults(v, "kafka")
	shared.SetRealtimeDefaults(v, shared.BackendMemory)

	v.SetDefault("sched.at", "08:00")
	v.SetDefault("sched.location", "Europe/Moscow")
	v.SetDefault("sched.thresholds", []int{10, 7, 4, 1})
	v.SetDefault("sched.run_on_start", false)
	v.SetDefault("sched.metrics_addr", ":8082")

	v.SetDefault("outbox.tick", "1s")
	v.SetDefault("outbox.batch_limit", 100)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if _, err := time.Parse("15:04", cfg.Sched.At); err != nil {
		return nil, shared.ErrConfig("sched.at must be HH:MM")
	}
	if _, err := time.LoadLocation(cfg.Sched.Location); err != nil {
		return nil, shared.ErrConfig("sched.location: unknown time zone " + cfg.Sched.Location)
	}
	if len(cfg.Sched.Thresholds) == 0 {
		return nil, shared.ErrConfig("sched.thresholds must not be empty")
	}
	for _, n := range cfg.Sched.Thresholds {
		if n <= 0 {
			return nil, shared.ErrConfig("sched.thresholds must be positive day counts")
		}
	}
	if err := shared.ValidateRealtime(cfg.Realtime); err != nil {
		return nil, err
	}
	return &cfg, nil
}
