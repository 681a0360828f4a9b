package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/bus"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/smoothing"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
	wsPongTimeout  = 75 * time.Second
)

// wsMessage is the JSON envelope pushed to visualization clients.
type wsMessage struct {
	Type string `json:"type"`

	// Type "hands".
	Hands    []detector.HandFeatures `json:"hands,omitempty"`
	Openness float64                 `json:"openness,omitempty"`
	Pinch    float64                 `json:"pinch,omitempty"`

	// Type "coordinate".
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Z float64 `json:"z,omitempty"`

	// Type "gesture".
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// Hub fans bus traffic out to WebSocket visualization clients. It is a
// bus sink on the visualization, spatial and gesture topics; clients
// that cannot keep up or error on write are dropped.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool

	// wmu serializes writes; the hub is subscribed to several topics
	// and their delivery goroutines broadcast independently.
	wmu sync.Mutex
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The visualization page may be served from another origin
			// during development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Name implements bus.Sink.
func (h *Hub) Name() string { return "websocket" }

// Deliver implements bus.Sink, translating pipeline payloads into
// client messages. JPEG frames ride the same topic but belong to the
// MJPEG store, so they are skipped here.
func (h *Hub) Deliver(env bus.Envelope) error {
	var msg wsMessage
	switch p := env.Payload.(type) {
	case detector.HandUpdate:
		msg = wsMessage{
			Type:     "hands",
			Hands:    p.Hands,
			Openness: p.Openness,
			Pinch:    p.Pinch,
		}
	case smoothing.Coordinate:
		msg = wsMessage{Type: "coordinate", X: p.X, Y: p.Y, Z: p.Z}
	case gesture.Event:
		msg = wsMessage{
			Type:        "gesture",
			Label:       string(p.Label),
			Description: p.Label.Description(),
		}
	default:
		return nil
	}

	h.broadcast(msg)
	return nil
}

// ServeWS upgrades the connection and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger().Warnw("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.SetVisualizationClients(n)
	logger.Logger().Infow("visualization client connected", "clients", n)

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	// Drain whatever the client sends; inbound traffic only serves to
	// reset the read deadline and detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()

	go h.ping(conn)
}

// ping keeps the connection alive; a client that stops answering trips
// the read deadline in the drain goroutine.
func (h *Hub) ping(conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for range ticker.C {
		h.wmu.Lock()
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
		h.wmu.Unlock()
		if err != nil {
			h.drop(conn)
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	h.wmu.Lock()
	for _, conn := range conns {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}
	h.wmu.Unlock()
	metrics.SetVisualizationClients(0)
}

func (h *Hub) broadcast(msg wsMessage) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.wmu.Lock()
	var dead []*websocket.Conn
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			dead = append(dead, conn)
		}
	}
	h.wmu.Unlock()

	for _, conn := range dead {
		h.drop(conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()

	if present {
		conn.Close()
		metrics.SetVisualizationClients(n)
		logger.Logger().Infow("visualization client disconnected", "clients", n)
	}
}
