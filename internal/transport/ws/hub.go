// Package ws carries room events over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-coach/internal/obslog"
	"github.com/park285/chess-coach/pkg/chessdto"
)

const (
	defaultSendBuffer   = 64
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 5 * time.Second
	readLimit           = 64 << 10
)

// Dispatcher handles decoded client events. *room.Manager implements it.
type Dispatcher interface {
	Join(ctx context.Context, connID string, req chessdto.JoinRoom) error
	Move(connID, roomID, move string)
	BotMove(roomID string, bot *chessdto.BotProfile)
	Disconnect(connID string)
}

type Options struct {
	// OriginPatterns lists extra hosts allowed to open a socket; the
	// request's own host is always allowed.
	OriginPatterns []string
	SendBuffer     int
	PingInterval   time.Duration
}

// Hub tracks live connections and delivers events to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*conn

	opts Options
}

type conn struct {
	id     string
	ws     *websocket.Conn
	out    chan chessdto.Event
	cancel context.CancelFunc
}

func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	return &Hub{conns: make(map[string]*conn), opts: opts}
}

// Send queues ev for each connection. A connection whose queue is full is
// dropped rather than stalling the caller.
func (h *Hub) Send(connIDs []string, ev chessdto.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range connIDs {
		c, ok := h.conns[id]
		if !ok {
			continue
		}
		select {
		case c.out <- ev:
		default:
			obslog.L().Warn("ws_send_queue_full", zap.String("conn_id", id), zap.String("event", ev.Type))
			c.cancel()
		}
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// Handler upgrades requests and feeds client events to d.
func (h *Hub) Handler(d Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:  h.opts.OriginPatterns,
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			obslog.L().Warn("ws_accept_failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
			return
		}
		wsConn.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(context.Background())
		c := &conn{
			id:     uuid.NewString(),
			ws:     wsConn,
			out:    make(chan chessdto.Event, h.opts.SendBuffer),
			cancel: cancel,
		}
		h.register(c)
		obslog.L().Info("ws_connected", zap.String("conn_id", c.id), zap.String("remote", r.RemoteAddr))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); h.writeLoop(ctx, c) }()
		go func() { defer wg.Done(); h.pingLoop(ctx, c) }()

		err = h.readLoop(ctx, c, d)

		h.unregister(c.id)
		d.Disconnect(c.id)
		cancel()
		wg.Wait()
		status := websocket.CloseStatus(err)
		_ = wsConn.Close(websocket.StatusNormalClosure, "")
		obslog.L().Info("ws_disconnected", zap.String("conn_id", c.id), zap.Int("status", int(status)))
	})
}

func (h *Hub) readLoop(ctx context.Context, c *conn, d Dispatcher) error {
	for {
		var env chessdto.Envelope
		if err := wsjson.Read(ctx, c.ws, &env); err != nil {
			return err
		}
		if err := dispatch(ctx, c.id, env, d); err != nil {
			h.Send([]string{c.id}, chessdto.Event{Type: chessdto.EventError, Data: chessdto.ErrorEvent{Message: err.Error()}})
		}
	}
}

var errUnknownEvent = errors.New("unknown event type")

func dispatch(ctx context.Context, connID string, env chessdto.Envelope, d Dispatcher) error {
	switch env.Type {
	case chessdto.EventJoinRoom:
		var req chessdto.JoinRoom
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return d.Join(ctx, connID, req)
	case chessdto.EventMakeMove:
		var req chessdto.MakeMove
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		d.Move(connID, req.RoomID, req.Move.String())
		return nil
	case chessdto.EventBotMove:
		var req chessdto.BotMove
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		d.BotMove(req.RoomID, req.Bot)
		return nil
	default:
		return errUnknownEvent
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing event data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.New("malformed event data")
	}
	return nil
}

func (h *Hub) writeLoop(ctx context.Context, c *conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.ws, ev)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_failed", zap.String("conn_id", c.id), zap.Error(err))
				c.cancel()
				return
			}
		}
	}
}

func (h *Hub) pingLoop(ctx context.Context, c *conn) {
	t := time.NewTicker(h.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.ws.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				obslog.L().Info("ws_ping_timeout", zap.String("conn_id", c.id))
				c.cancel()
				return
			}
		}
	}
}
