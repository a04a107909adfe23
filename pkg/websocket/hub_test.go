package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.GetClientCount() == n }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := runningHub(t)
	conn, _, err := dialServedClient(t, hub, "admin-1")
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	require.NoError(t, hub.SendToAll("withdrawal.pending_review", map[string]string{"withdrawal_id": "w-1"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "withdrawal.pending_review", msg.Type)
	assert.JSONEq(t, `{"withdrawal_id":"w-1"}`, string(msg.Data))
}

func TestHub_ReconnectReplacesClient(t *testing.T) {
	hub := runningHub(t)
	first, _, err := dialServedClient(t, hub, "admin-1")
	require.NoError(t, err)
	waitForClients(t, hub, 1)
	c1, _ := hub.GetClient("admin-1")

	_, _, err = dialServedClient(t, hub, "admin-1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		c, ok := hub.GetClient("admin-1")
		return ok && c != c1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())

	// The replaced connection is closed by the server.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = first.ReadMessage()
	assert.Error(t, err)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := runningHub(t)
	conn, _, err := dialServedClient(t, hub, "admin-2")
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())

	waitForClients(t, hub, 0)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn, _, err := dialServedClient(t, hub, "admin-3")
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestHub_SendToAllWithoutClients(t *testing.T) {
	hub := runningHub(t)
	assert.NoError(t, hub.SendToAll("withdrawal.created", map[string]int{"n": 1}))
}

func TestUpgrader_RejectsUnknownOrigin(t *testing.T) {
	hub := runningHub(t)

	_, resp, err := dialServedClient(t, hub, "admin-4", "https://admin.example.com")

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
