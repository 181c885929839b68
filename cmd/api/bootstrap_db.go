package main

import (
	"context"

	config "github.com/NordCoder/safecode-crm/internal/config/api"
	pg "github.com/NordCoder/safecode-crm/internal/repository/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pg.DB, error) {
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	prometheus.MustRegister(db.Collector())
	logger.Info("db connected", zap.Int32("max_conns", cfg.DB.MaxConns))
	return db, nil
}
