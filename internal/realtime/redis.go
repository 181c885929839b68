package realtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ChannelPrefix namespaces pub/sub channels, e.g. "crm:rt:".
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// RedisBroker shares groups across processes. Publish goes to Redis; Run relays
// every message on the prefix back into the local hub.
type RedisBroker struct {
	client redis.UniversalClient
	local  *Hub
	prefix string
	log    *zap.Logger
}

var _ Publisher = (*RedisBroker)(nil)

func NewRedisBroker(client redis.UniversalClient, local *Hub, prefix string, log *zap.Logger) *RedisBroker {
	if log == nil {
		log = zap.L()
	}
	return &RedisBroker{
		client: client,
		local:  local,
		prefix: prefix,
		log:    log.With(zap.String("component", "realtime.redis")),
	}
}

func (b *RedisBroker) channel(group string) string { return b.prefix + group }

func (b *RedisBroker) Publish(ctx context.Context, group string, payload []byte) error {
	return b.client.Publish(ctx, b.channel(group), payload).Err()
}

// Run blocks until ctx is done or the subscription fails.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, b.channel(groupPrefix+"*"))
	defer func() { _ = ps.Close() }()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	b.log.Info("relay subscribed", zap.String("pattern", b.channel(groupPrefix+"*")))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			group := strings.TrimPrefix(msg.Channel, b.prefix)
			if _, ok := ParseGroupName(group); !ok {
				b.log.Debug("ignoring foreign channel", zap.String("channel", msg.Channel))
				continue
			}
			_ = b.local.Publish(ctx, group, []byte(msg.Payload))
		}
	}
}
