package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/essboard/essboard/pkg/board"
	"github.com/essboard/essboard/pkg/log"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsMessage struct {
	Type string      `json:"type"`
	Data board.State `json:"data"`
}

type wsClient struct {
	conn *websocket.Conn
	// pending holds at most the newest undelivered state
	pending chan board.State
	done    chan struct{}
	once    sync.Once
	// sent is the newest version written; set once after init, then only
	// touched by writeLoop
	sent uint64
	// writes to a websocket.Conn must not be concurrent
	mu sync.Mutex
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:    conn,
		pending: make(chan board.State, 1),
		done:    make(chan struct{}),
	}
}

func (c *wsClient) send(msg wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// offer queues st for the writer, replacing any older state still waiting.
// It never blocks.
func (c *wsClient) offer(st board.State) {
	for {
		select {
		case c.pending <- st:
			return
		default:
		}
		select {
		case old := <-c.pending:
			if old.Version > st.Version {
				st = old
			}
		default:
		}
	}
}

// writeLoop delivers queued states until the client is stopped or a write
// fails.
func (c *wsClient) writeLoop(h *hub) {
	for {
		select {
		case <-c.done:
			return
		case st := <-c.pending:
			if st.Version <= c.sent {
				continue
			}
			c.sent = st.Version
			if err := c.send(wsMessage{Type: "update", Data: st}); err != nil {
				slog.Debug("dropping websocket client", slog.Any("error", err))
				h.remove(c)
				return
			}
		}
	}
}

func (c *wsClient) stop() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// hub fans out interpretation state changes to connected websocket clients.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]struct{})}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// publish hands st to every client's writer without waiting on the network.
func (h *hub) publish(st board.State) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.offer(st)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.mu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second),
		)
		c.mu.Unlock()
		c.stop()
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an error response
		log.Ctx(ctx).WarnContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}
	c := newWSClient(conn)

	// register before taking the snapshot so no change is missed; the writer
	// starts after init so updates always follow it
	s.hub.add(c)
	defer s.hub.remove(c)
	initial := s.board.State()
	if err := c.send(wsMessage{Type: "init", Data: initial}); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to send websocket init", slog.Any("error", err))
		return
	}
	c.sent = initial.Version
	go c.writeLoop(s.hub)

	// clients don't send anything meaningful; reading surfaces the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Ctx(ctx).DebugContext(ctx, "websocket closed", slog.Any("error", err))
			}
			return
		}
	}
}
