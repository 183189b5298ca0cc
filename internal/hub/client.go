package hub

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/onatuner/tap-or-tarp-sub001/internal/bus"
	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
	"github.com/onatuner/tap-or-tarp-sub001/internal/protocol"
)

// sendQueueSize bounds the outbound queue by message count; the byte cap
// in TrySend is the protocol-level limit.
const sendQueueSize = 256

// writeTimeout bounds a single frame write.
const writeTimeout = 10 * time.Second

// Client is one websocket connection. It implements bus.Subscriber.
type Client struct {
	id   string
	ip   string
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	gameID string

	send      chan []byte
	buffered  atomic.Int64
	quit      chan struct{}
	closeOnce sync.Once
}

// ClientID returns the connection's assigned id.
func (c *Client) ClientID() string { return c.id }

// GameID returns the game the client is attached to, or "".
func (c *Client) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID
}

func (c *Client) setGame(id string) {
	c.mu.Lock()
	c.gameID = id
	c.mu.Unlock()
}

// TrySend queues a payload without blocking. Returns false when the queue
// is full or the payload would push the buffered bytes past the cap; the
// bus then evicts the subscriber. A buffer sitting exactly at the cap is
// still within contract.
func (c *Client) TrySend(payload []byte) bool {
	select {
	case <-c.quit:
		return false
	default:
	}
	n := int64(len(payload))
	if c.buffered.Add(n) > bus.MaxBufferedBytes {
		c.buffered.Add(-n)
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.buffered.Add(-n)
		return false
	}
}

// Kick closes the connection with the given close code.
func (c *Client) Kick(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.quit)
		if c.conn == nil {
			return
		}
		if err := c.conn.Close(websocket.StatusCode(code), reason); err != nil {
			slog.Debug("close failed", "client_id", c.id, "error", err)
		}
	})
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.quit:
			return
		case payload := <-c.send:
			c.buffered.Add(-int64(len(payload)))
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				c.Kick(int(websocket.StatusAbnormalClosure), "write failed")
				return
			}
		}
	}
}

// HandleWS upgrades the request and runs the connection until it closes.
// The Origin header is checked against the configured allow list before the
// upgrade; the library's own pattern check is skipped so a single policy
// applies. Requests without an Origin header are not browsers and pass.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && !h.cfg.OriginAllowed(origin) {
		slog.Warn("origin rejected", "origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		slog.Debug("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(protocol.MaxFrameSize)

	c := &Client{
		id:   uuid.New().String(),
		ip:   clientIP(r),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		quit: make(chan struct{}),
	}
	h.metrics.Connections.Add(1)
	slog.Info("client connected", "client_id", c.id, "ip", c.ip)

	go c.writeLoop()
	h.bus.Send(c, protocol.EvClientID, struct {
		ClientID string `json:"clientId"`
	}{c.id})

	c.readLoop(r.Context())
	h.onDisconnect(c)
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("read failed", "client_id", c.id, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		c.hub.dispatch(ctx, c, data)
	}
}

// onDisconnect detaches the client and pauses the game when it was the
// last local subscriber. Claims survive; the reconnect token brings the
// player back.
func (h *Hub) onDisconnect(c *Client) {
	c.Kick(int(websocket.StatusNormalClosure), "")
	h.metrics.Connections.Add(-1)
	h.limitConn.Forget(c.id)

	id := c.GameID()
	if id == "" {
		slog.Info("client disconnected", "client_id", c.id)
		return
	}
	remaining := h.bus.Detach(c)
	slog.Info("client disconnected", "client_id", c.id, "game_id", id, "remaining", remaining)
	if remaining > 0 {
		return
	}
	h.stopTicker(id)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if st.Status != game.StatusRunning {
			return nil
		}
		return st.Pause()
	})
	if err != nil {
		if !errors.Is(err, game.ErrGameNotFound) {
			slog.Warn("auto-pause failed", "game_id", id, "error", err)
		}
		return
	}
	h.bus.Broadcast(ctx, id, protocol.EvState, out.Public())
}

// leaveCurrentGame detaches the client from its game, if any, applying the
// same auto-pause as a disconnect.
func (h *Hub) leaveCurrentGame(c *Client) {
	id := c.GameID()
	if id == "" {
		return
	}
	if remaining := h.bus.Detach(c); remaining == 0 {
		h.stopTicker(id)
	}
	c.setGame("")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
