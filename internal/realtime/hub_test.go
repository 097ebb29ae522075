package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testClient(hub *Hub, buf int) *Client {
	c := newClient(hub, nil, 0, "", zap.NewNop())
	c.send = make(chan WSMessage, buf)
	return c
}

func TestBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	assert.NoError(t, hub.Broadcast(EventDeleted, int64(3)))
	assert.Equal(t, 0, hub.ClientCount())
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := testClient(hub, 1), testClient(hub, 1)
	hub.Register(a)
	hub.Register(b)
	require.Equal(t, 2, hub.ClientCount())

	require.NoError(t, hub.Broadcast(EventUpdated, map[string]string{"title": "Go Meetup"}))

	for _, c := range []*Client{a, b} {
		msg := <-c.send
		assert.Equal(t, EventUpdated, msg.Event)
		assert.JSONEq(t, `{"title":"Go Meetup"}`, string(msg.Data))
	}
}

func TestBroadcastSkipsFullClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow := testClient(hub, 0)
	fast := testClient(hub, 1)
	hub.Register(slow)
	hub.Register(fast)

	require.NoError(t, hub.Broadcast(Notification, "hello"))

	msg := <-fast.send
	assert.JSONEq(t, `"hello"`, string(msg.Data))
	assert.Len(t, slow.send, 0)
}

func TestBroadcastEncodeError(t *testing.T) {
	hub := NewHub(zap.NewNop())
	err := hub.Broadcast(EventCreated, make(chan int))
	assert.Error(t, err)
}

func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := testClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())

	select {
	case <-c.done:
	default:
		t.Fatal("done channel not closed")
	}
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := testClient(hub, 8)
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			_ = hub.Broadcast(Notification, "tick")
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHandleLegacyRegisterMessage(t *testing.T) {
	hub := NewHub(zap.NewNop())
	listener := testClient(hub, 1)
	hub.Register(listener)
	sender := testClient(hub, 1)

	sender.handle(WSMessage{Event: "register", Data: json.RawMessage(`{"email":"ada@example.com"}`)})

	msg := <-listener.send
	assert.Equal(t, Notification, msg.Event)
	assert.JSONEq(t, `{"message":"ada@example.com has registered for an event."}`, string(msg.Data))

	sender.handle(WSMessage{Event: "chat", Data: json.RawMessage(`{}`)})
	assert.Len(t, listener.send, 0)
}

func TestServeWsDeliversBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	r := gin.New()
	r.GET("/ws", ServeWs(hub, zap.NewNop(), nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Broadcast(EventDeleted, int64(42)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventDeleted, msg.Event)
	assert.Equal(t, "42", string(msg.Data))
}

func TestServeWsRejectsBadToken(t *testing.T) {
	hub := NewHub(zap.NewNop())
	r := gin.New()
	r.GET("/ws", ServeWs(hub, zap.NewNop(), func(string) (int64, string, error) {
		return 0, "", assert.AnError
	}))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws?token=bad", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 401, w.Code)
	assert.Equal(t, 0, hub.ClientCount())
}
