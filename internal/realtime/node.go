package realtime

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Node is one process's attachment to the delivery channel. Connections join
// Hub; emitters publish through Publisher, which never returns an error.
type Node struct {
	Hub       *Hub
	Publisher Publisher

	broker *RedisBroker
	client *redis.Client
}

// NewMemoryNode delivers only to connections held by this process.
func NewMemoryNode(buffer int, log *zap.Logger) *Node {
	hub := NewHub(log).WithBuffer(buffer)
	return &Node{Hub: hub, Publisher: NewSafePublisher(hub, log)}
}

// NewRedisNode publishes through Redis so every process relaying the same
// prefix delivers to its own connections.
func NewRedisNode(ctx context.Context, buffer int, cfg RedisConfig, log *zap.Logger) (*Node, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	hub := NewHub(log).WithBuffer(buffer)
	broker := NewRedisBroker(client, hub, cfg.ChannelPrefix, log)
	return &Node{
		Hub:       hub,
		Publisher: NewSafePublisher(broker, log),
		broker:    broker,
		client:    client,
	}, nil
}

// Run relays shared traffic into the local hub until ctx is done. A memory
// node has nothing to relay and just waits.
func (n *Node) Run(ctx context.Context) error {
	if n.broker == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return n.broker.Run(ctx)
}

func (n *Node) Health(ctx context.Context) error {
	if n.client == nil {
		return nil
	}
	return n.client.Ping(ctx).Err()
}

func (n *Node) Close() error {
	if n.client == nil {
		return nil
	}
	if err := n.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
