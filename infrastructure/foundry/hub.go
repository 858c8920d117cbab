package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

const maxDecodeErrorsPerConn = 5

// commandFrame is sent to the Foundry module
type commandFrame struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Payload any    `json:"payload,omitempty"`
}

// inboundFrame is either a command response (ID set) or a module event (Event set)
type inboundFrame struct {
	ID      string          `json:"id,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    map[string]any  `json:"data,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventHandler receives events pushed by a Foundry module, such as dice rolls
type EventHandler func(ctx context.Context, connectionID, event string, payload json.RawMessage)

type session struct {
	connectionID string
	conn         *websocket.Conn

	writeMu sync.Mutex
	encoder *json.Encoder

	mu      sync.Mutex
	pending map[string]chan inboundFrame
}

func (s *session) write(frame commandFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.encoder.Encode(frame)
}

func (s *session) await(id string) chan inboundFrame {
	ch := make(chan inboundFrame, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	return ch
}

func (s *session) forget(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *session) resolve(frame inboundFrame) bool {
	s.mu.Lock()
	ch, ok := s.pending[frame.ID]
	delete(s.pending, frame.ID)
	s.mu.Unlock()
	if ok {
		ch <- frame
	}
	return ok
}

// Hub keeps one live WebSocket session per VTT connection id and correlates
// command responses by frame id
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	commandTimeout time.Duration
	onEvent        EventHandler
}

// NewHub creates a hub. Commands without a response after commandTimeout fail.
func NewHub(commandTimeout time.Duration) *Hub {
	if commandTimeout <= 0 {
		commandTimeout = 10 * time.Second
	}
	return &Hub{
		sessions:       make(map[string]*session),
		commandTimeout: commandTimeout,
	}
}

// OnEvent sets the handler for events pushed by modules
func (h *Hub) OnEvent(handler EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = handler
}

// Handler serves the module endpoint. The connection id is the connection_id query parameter.
func (h *Hub) Handler() http.Handler {
	wsHandler := websocket.Handler(h.serve)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if strings.TrimSpace(r.URL.Query().Get("connection_id")) == "" {
			http.Error(w, "connection_id is required", http.StatusBadRequest)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
}

// IsConnected returns true if a module session is attached to connectionID
func (h *Hub) IsConnected(connectionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[connectionID]
	return ok
}

// ConnectionCount returns the number of live sessions
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) serve(conn *websocket.Conn) {
	connectionID := strings.TrimSpace(conn.Request().URL.Query().Get("connection_id"))
	s := &session{
		connectionID: connectionID,
		conn:         conn,
		encoder:      json.NewEncoder(conn),
		pending:      make(map[string]chan inboundFrame),
	}

	h.register(s)
	defer h.unregister(s)

	logger := log.WithField("connection_id", connectionID)
	logger.Info("VTT module connected")

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var frame inboundFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("VTT module disconnected")
				return
			}
			decodeErrors++
			logger.WithError(err).Warn("Invalid frame from VTT module")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch {
		case frame.ID != "":
			if !s.resolve(frame) {
				logger.WithField("frame_id", frame.ID).Debug("Response for unknown or timed out command")
			}
		case frame.Event != "":
			h.dispatchEvent(conn.Request().Context(), connectionID, frame)
		default:
			logger.Debug("Ignoring frame without id or event")
		}
	}
}

func (h *Hub) dispatchEvent(ctx context.Context, connectionID string, frame inboundFrame) {
	h.mu.RLock()
	handler := h.onEvent
	h.mu.RUnlock()

	if handler == nil {
		return
	}
	handler(ctx, connectionID, frame.Event, frame.Payload)
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	previous := h.sessions[s.connectionID]
	h.sessions[s.connectionID] = s
	h.mu.Unlock()

	// one session per connection id, the newest wins
	if previous != nil {
		log.WithField("connection_id", s.connectionID).Warn("Replacing existing VTT session")
		_ = previous.conn.Close()
	}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	if h.sessions[s.connectionID] == s {
		delete(h.sessions, s.connectionID)
	}
	h.mu.Unlock()
	_ = s.conn.Close()
}

func (h *Hub) session(connectionID string) *session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[connectionID]
}

// send writes a command and waits for its response, the per-command timeout or ctx
func (h *Hub) send(ctx context.Context, connectionID, command string, payload any) result {
	s := h.session(connectionID)
	if s == nil {
		return failure("VTT connection not found")
	}

	frame := commandFrame{ID: uuid.New().String(), Command: command, Payload: payload}
	responses := s.await(frame.ID)
	defer s.forget(frame.ID)

	logger := log.WithFields(log.Fields{
		"connection_id": connectionID,
		"command":       command,
		"frame_id":      frame.ID,
	})

	if err := s.write(frame); err != nil {
		logger.WithError(err).Error("Failed to send command to VTT module")
		return failure("failed to send command: " + err.Error())
	}

	timeout := time.NewTimer(h.commandTimeout)
	defer timeout.Stop()

	select {
	case resp := <-responses:
		logger.WithField("success", resp.Success).Debug("VTT command answered")
		return result{Success: resp.Success, Error: resp.Error, Data: resp.Data}
	case <-timeout.C:
		logger.Warn("VTT command timed out")
		return failure("command timed out")
	case <-ctx.Done():
		return failure(ctx.Err().Error())
	}
}
