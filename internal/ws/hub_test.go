package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/internal/pipeline"
)

func dialTestHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Registration happens in the upgrade handler before the read pump
	// starts; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ClientCount())
	return hub, conn
}

func TestHubBroadcastsTicks(t *testing.T) {
	hub, conn := dialTestHub(t)

	hub.BroadcastTick(&pipeline.TickResult{Seq: 9, State: "active", Recording: true})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got pipeline.TickResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(9), got.Seq)
	assert.Equal(t, "active", got.State)
	assert.True(t, got.Recording)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub()
	assert.False(t, hub.HasClients())
	// Must be a no-op rather than a panic.
	hub.BroadcastTick(&pipeline.TickResult{Seq: 1})
}

func TestPingPumpStopsOnDone(t *testing.T) {
	_, conn := dialTestHub(t)

	done := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		NewHandler(nil).pingPump(conn, done)
		close(returned)
	}()

	close(done)
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("ping pump kept running after its connection was done")
	}
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub, conn := dialTestHub(t)

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())
}
