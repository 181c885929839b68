package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tokenAuth map[string]int64

func (a tokenAuth) Authenticate(_ context.Context, token string) (*user.User, error) {
	if token == "panic" {
		return nil, errors.New("recovered panic")
	}
	id, ok := a[token]
	if !ok {
		return nil, errors.New("unauthenticated")
	}
	return &user.User{ID: id, IsActive: true}, nil
}

func setup(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := realtime.NewHub(zap.NewNop()).WithBuffer(4)
	h := NewHandler(tokenAuth{"good": 7, "other": 8}, hub, nil, DefaultTiming(), zap.NewNop())

	r := gin.New()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitMembers(t *testing.T, hub *realtime.Hub, group string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Members(group) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_RejectsWithoutUpgrade(t *testing.T) {
	srv, hub := setup(t)

	for _, token := range []string{"", "bogus", "panic"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
		require.Error(t, err, "token %q", token)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Zero(t, hub.Members(realtime.GroupName(7)))
}

func TestGateway_DeliversOwnGroupFrame(t *testing.T) {
	srv, hub := setup(t)
	conn := dial(t, srv, "good")
	waitMembers(t, hub, realtime.GroupName(7), 1)

	frame := []byte(`{"type":"notification","data":{"id":42}}`)
	require.NoError(t, hub.Publish(context.Background(), realtime.GroupName(8), []byte(`{"type":"notification","data":{"id":1}}`)))
	require.NoError(t, hub.Publish(context.Background(), realtime.GroupName(7), frame))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(frame), string(got))
}

func TestGateway_PingPongAndIgnoresGarbage(t *testing.T) {
	srv, _ := setup(t)
	conn := dial(t, srv, "good")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(got))
}

func TestGateway_LeavesGroupOnClose(t *testing.T) {
	srv, hub := setup(t)
	conn := dial(t, srv, "good")
	waitMembers(t, hub, realtime.GroupName(7), 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitMembers(t, hub, realtime.GroupName(7), 0)

	require.NoError(t, hub.Publish(context.Background(), realtime.GroupName(7), []byte(`{}`)))
}

func TestGateway_TwoConnectionsSameUser(t *testing.T) {
	srv, hub := setup(t)
	a := dial(t, srv, "good")
	b := dial(t, srv, "good")
	waitMembers(t, hub, realtime.GroupName(7), 2)

	require.NoError(t, hub.Publish(context.Background(), realtime.GroupName(7), []byte(`{"type":"notification","data":{"id":5}}`)))
	for _, c := range []*websocket.Conn{a, b} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, got, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(got), `"id":5`)
	}
}
