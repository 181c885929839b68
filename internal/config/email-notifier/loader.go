package email_notifier_config

import (
	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
)

func Load(path string) (*Config, error) {
	v, err := shared.NewViper(path)
	if err != nil {
		return nil, err
	}

	shared.SetAppDefaults(v, "email-notifier")

	v.SetDefault("kafka_in.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka_in.topic", shared.EmailTopic)
	v.SetDefault("kafka_in.group_id", "email-notifier")

	v.SetDefault("smtp.addr", "localhost:1025")
	v.SetDefault("smtp.from", "noreply@safecode.dev")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.use_tls", false)
	v.SetDefault("smtp.timeout", "5s")
	v.SetDefault("smtp.subj_prefix", "[SafeCode]")

	v.SetDefault("server.metrics_addr", ":8084")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.In.Brokers) == 0 {
		return nil, shared.ErrConfig("kafka_in.brokers is required")
	}
	return &cfg, nil
}
