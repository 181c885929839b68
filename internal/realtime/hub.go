package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const defaultBuffer = 256

var (
	hubMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_hub_members",
		Help: "Subscriptions currently joined to any group.",
	})
	hubDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_hub_frames_delivered_total",
		Help: "Frames queued to a subscription.",
	})
	hubEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_hub_evicted_total",
		Help: "Subscriptions dropped because their buffer was full.",
	})
)

var _ Publisher = (*Hub)(nil)

// Hub is the in-process group registry. It is safe for concurrent use and holds
// no durable state.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Subscription]struct{}
	buffer int
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.L()
	}
	return &Hub{
		groups: make(map[string]map[*Subscription]struct{}),
		buffer: defaultBuffer,
		log:    log.With(zap.String("component", "realtime.hub")),
	}
}

// WithBuffer sets the per-subscription queue size for later joins.
func (h *Hub) WithBuffer(n int) *Hub {
	if n > 0 {
		h.buffer = n
	}
	return h
}

// Subscription is one connection's membership in one group.
type Subscription struct {
	ID    string
	Group string

	frames chan []byte
	hub    *Hub
	once   sync.Once
}

// Frames is closed when the subscription leaves or is evicted.
func (s *Subscription) Frames() <-chan []byte { return s.frames }

// Leave removes the subscription from its group. Safe to call more than once.
func (s *Subscription) Leave() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if members, ok := h.groups[s.Group]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.groups, s.Group)
			}
		}
		close(s.frames)
		h.mu.Unlock()
		hubMembers.Dec()
	})
}

func (h *Hub) Join(group string) *Subscription {
	s := &Subscription{
		ID:     uuid.NewString(),
		Group:  group,
		frames: make(chan []byte, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Subscription]struct{})
		h.groups[group] = members
	}
	members[s] = struct{}{}
	h.mu.Unlock()

	hubMembers.Inc()
	h.log.Debug("joined", zap.String("group", group), zap.String("sub", s.ID))
	return s
}

// Publish queues payload for every member of group without blocking. Members
// whose queue is full are evicted.
func (h *Hub) Publish(_ context.Context, group string, payload []byte) error {
	var slow []*Subscription

	h.mu.RLock()
	for s := range h.groups[group] {
		select {
		case s.frames <- payload:
			hubDelivered.Inc()
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		hubEvicted.Inc()
		h.log.Warn("evicting slow subscriber", zap.String("group", group), zap.String("sub", s.ID))
		s.Leave()
	}
	return nil
}

func (h *Hub) Members(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
