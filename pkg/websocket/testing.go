package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// dialServedClient starts a server that serves each upgrade as a hub client
// with the given id and returns the dialed browser side of the connection.
func dialServedClient(t *testing.T, hub *Hub, id string, origins ...string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	upgrader := NewUpgrader(origins)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(id, conn, hub, hub.logger).Serve()
	}))
	t.Cleanup(server.Close)

	header := http.Header{}
	if len(origins) > 0 {
		header.Set("Origin", "https://evil.example.com")
	}
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}
