package foundry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tumulte/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func startHub(t *testing.T, timeout time.Duration) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(timeout)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialModule(t *testing.T, srv *httptest.Server, connectionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?connection_id=" + connectionID
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitConnected(t *testing.T, hub *Hub, connectionID string) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.IsConnected(connectionID) }, 2*time.Second, 10*time.Millisecond)
}

// answer replies to the next command with success and echoes its payload
func answer(t *testing.T, conn *websocket.Conn, success bool, errMsg string) <-chan commandFrame {
	received := make(chan commandFrame, 1)
	go func() {
		var raw struct {
			ID      string          `json:"id"`
			Command string          `json:"command"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.NewDecoder(conn).Decode(&raw); err != nil {
			return
		}
		var payload map[string]any
		_ = json.Unmarshal(raw.Payload, &payload)
		received <- commandFrame{ID: raw.ID, Command: raw.Command, Payload: payload}

		_ = json.NewEncoder(conn).Encode(map[string]any{
			"id":      raw.ID,
			"success": success,
			"error":   errMsg,
			"data":    map[string]any{"echo": raw.Command},
		})
	}()
	return received
}

func TestHandler_RequiresConnectionID(t *testing.T) {
	_, srv := startHub(t, time.Second)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommandService_RoundTrip(t *testing.T) {
	hub, srv := startHub(t, 2*time.Second)
	conn := dialModule(t, srv, "table-1")
	waitConnected(t, hub, "table-1")

	svc := NewCommandService(hub)
	received := answer(t, conn, true, "")

	res := svc.ModifyActor(context.Background(), "table-1", "actor-9", map[string]any{"system.attributes.hp.value": 3})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, CommandActorUpdate, res.Data["echo"])

	frame := <-received
	assert.Equal(t, CommandActorUpdate, frame.Command)
	assert.Equal(t, "actor-9", frame.Payload.(map[string]any)["actorId"])
}

func TestCommandService_RemoteFailureReported(t *testing.T) {
	hub, srv := startHub(t, 2*time.Second)
	conn := dialModule(t, srv, "table-1")
	waitConnected(t, hub, "table-1")

	answer(t, conn, false, "no roll to invert")

	res := NewCommandService(hub).InvertLastRoll(context.Background(), "table-1", interfaces.InvertRollRequest{
		OriginalResult: 20,
		InvertedResult: 1,
	})
	assert.False(t, res.Success)
	assert.Equal(t, "no roll to invert", res.Error)
}

func TestCommandService_Timeout(t *testing.T) {
	hub, srv := startHub(t, 50*time.Millisecond)
	dialModule(t, srv, "table-1")
	waitConnected(t, hub, "table-1")

	res := NewCommandService(hub).SendChatMessage(context.Background(), "table-1", "hello", "Tumulte")
	assert.False(t, res.Success)
	assert.Equal(t, "command timed out", res.Error)
}

func TestCommandService_NotConnected(t *testing.T) {
	hub, _ := startHub(t, time.Second)
	svc := NewCommandService(hub)

	assert.False(t, svc.IsConnected("missing"))
	res := svc.ExecuteCustom(context.Background(), "missing", "shake_screen", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "VTT connection not found", res.Error)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t, time.Second)
	conn := dialModule(t, srv, "table-1")
	waitConnected(t, hub, "table-1")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !hub.IsConnected("table-1") }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DispatchesModuleEvents(t *testing.T) {
	hub, srv := startHub(t, time.Second)

	type received struct {
		connectionID string
		event        string
		payload      json.RawMessage
	}
	events := make(chan received, 1)
	hub.OnEvent(func(ctx context.Context, connectionID, event string, payload json.RawMessage) {
		events <- received{connectionID, event, payload}
	})

	conn := dialModule(t, srv, "table-1")
	waitConnected(t, hub, "table-1")

	require.NoError(t, json.NewEncoder(conn).Encode(map[string]any{
		"event":   "dice.rolled",
		"payload": map[string]any{"total": 20},
	}))

	select {
	case got := <-events:
		assert.Equal(t, "table-1", got.connectionID)
		assert.Equal(t, "dice.rolled", got.event)
		assert.JSONEq(t, `{"total":20}`, string(got.payload))
	case <-time.After(2 * time.Second):
		t.Fatal("module event was not dispatched")
	}
}
