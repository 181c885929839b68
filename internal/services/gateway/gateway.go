// Package gateway serves the realtime notification socket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/NordCoder/safecode-crm/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_connections_open",
		Help: "Open realtime connections.",
	})
	mRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_handshakes_rejected_total",
		Help: "Rejected realtime handshakes, by reason.",
	}, []string{"reason"})
	mClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_connections_closed_total",
		Help: "Closed realtime connections, by cause.",
	}, []string{"cause"})
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

type Joiner interface {
	Join(group string) *realtime.Subscription
}

type Timing struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

func DefaultTiming() Timing {
	pong := 60 * time.Second
	return Timing{
		WriteWait:      10 * time.Second,
		PongWait:       pong,
		PingPeriod:     pong * 9 / 10,
		MaxMessageSize: 4096,
	}
}

type Handler struct {
	auth     Authenticator
	hub      Joiner
	upgrader websocket.Upgrader
	timing   Timing
	log      *zap.Logger
}

// NewHandler accepts any origin when allowedOrigins is empty.
func NewHandler(auth Authenticator, hub Joiner, allowedOrigins []string, timing Timing, log *zap.Logger) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		auth: auth,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		timing: timing,
		log:    obs.Component(log, "gateway"),
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ws/notifications", h.Serve)
}

// Serve authenticates before upgrading; a rejected handshake gets a plain 401.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		mRejected.WithLabelValues("missing_token").Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	u, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		mRejected.WithLabelValues("unauthenticated").Inc()
		h.log.Debug("handshake rejected", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	sub := h.hub.Join(realtime.GroupName(u.ID))
	defer sub.Leave()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		mRejected.WithLabelValues("upgrade").Inc()
		h.log.Warn("websocket upgrade", zap.Int64("user_id", u.ID), zap.Error(err))
		return
	}

	mOpen.Inc()
	defer mOpen.Dec()

	log := h.log.With(zap.Int64("user_id", u.ID), zap.String("sub", sub.ID))
	log.Info("connection open")

	cl := &client{
		conn:    conn,
		sub:     sub,
		control: make(chan []byte, 8),
		done:    make(chan struct{}),
		timing:  h.timing,
		log:     log,
	}
	go cl.readPump()
	cause := cl.writePump()
	mClosed.WithLabelValues(cause).Inc()
	log.Info("connection closed", zap.String("cause", cause))
}

type inbound struct {
	Type string `json:"type"`
}

var pongFrame = []byte(`{"type":"pong"}`)

// client owns one socket. writePump is the only writer.
type client struct {
	conn    *websocket.Conn
	sub     *realtime.Subscription
	control chan []byte
	done    chan struct{}
	timing  Timing
	log     *zap.Logger
}

func (c *client) readPump() {
	defer close(c.done)

	c.conn.SetReadLimit(c.timing.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read", zap.Error(err))
			}
			return
		}
		var msg inbound
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case c.control <- pongFrame:
			default:
			}
		}
	}
}

// writePump forwards frames and keepalives until the peer goes away or the
// subscription is closed, then closes the socket. It returns the cause.
func (c *client) writePump() string {
	ticker := time.NewTicker(c.timing.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.sub.Frames():
			if !ok {
				c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "evicted"))
				return "evicted"
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return "write_error"
			}
		case frame := <-c.control:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return "write_error"
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return "ping_error"
			}
		case <-c.done:
			return "peer_closed"
		}
	}
}

func (c *client) write(kind int, payload []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timing.WriteWait))
	err := c.conn.WriteMessage(kind, payload)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.log.Debug("write", zap.Error(err))
	}
	return err
}
