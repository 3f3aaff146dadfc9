package activity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestHub serves the hub over an httptest server and returns a connected
// client.
func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Subscribe(conn)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count never reached %d, have %d", want, hub.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishWithNoSubscribersNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Publish("CA1", "caller asked about hours")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestSubscriberReceivesPublishedEvents(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	conn := dialTestHub(t, hub)
	waitForSubscribers(t, hub, 1)

	hub.Publish("CA1", "confirmed intent Hours")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, TypeAction, event.Type)
	assert.Equal(t, "CA1", event.CallID)
	assert.Equal(t, "confirmed intent Hours", event.Message)
	assert.False(t, event.Time.IsZero())
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	first := dialTestHub(t, hub)
	second := dialTestHub(t, hub)
	waitForSubscribers(t, hub, 2)

	hub.Broadcast(NewSpeechEvent("CA1", "hello?"))

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event Event
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, TypeSpeech, event.Type)
		assert.Equal(t, "hello?", event.Message)
	}
}

func TestClientDisconnectRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	conn := dialTestHub(t, hub)
	waitForSubscribers(t, hub, 1)

	conn.Close()
	waitForSubscribers(t, hub, 0)

	// Publishing after the disconnect is a no-op, not a panic.
	hub.Publish("CA1", "still running")
}

func TestShutdownDisconnectsSubscribers(t *testing.T) {
	hub := NewHub()

	conn := dialTestHub(t, hub)
	waitForSubscribers(t, hub, 1)

	hub.Shutdown()
	assert.Zero(t, hub.SubscriberCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	// Late connections after shutdown are refused, not registered.
	late := dialTestHub(t, hub)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, hub.SubscriberCount())
	late.Close()
}
