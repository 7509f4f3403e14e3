package coachclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-coach/pkg/chessdto"
)

type SocketState int

const (
	SocketDisconnected SocketState = iota
	SocketConnecting
	SocketConnected
	SocketClosed
)

type EventCallback func(ev chessdto.Envelope)

type StateCallback func(state SocketState)

var ErrNotConnected = errors.New("socket not connected")

type callbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Socket is a client of the room channel. Writes are serialized; callbacks
// run on the read goroutine.
type Socket struct {
	url    string
	header http.Header

	conn   *websocket.Conn
	state  SocketState
	stateM sync.RWMutex
	writeM sync.Mutex

	evCbs    []callbackEntry
	stateCbs []stateCallbackEntry
	nextID   int
	cbM      sync.RWMutex

	pingInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewSocket(url string) *Socket {
	return &Socket{
		url:          url,
		header:       http.Header{},
		state:        SocketDisconnected,
		pingInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// SetHeader adds a handshake header (Origin, Authorization).
func (s *Socket) SetHeader(key, value string) { s.header.Set(key, value) }

func (s *Socket) Connect(ctx context.Context) error {
	s.stateM.RLock()
	st := s.state
	s.stateM.RUnlock()
	if st == SocketConnected || st == SocketConnecting {
		return nil
	}
	if st == SocketClosed {
		return ErrNotConnected
	}

	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())
	s.setState(SocketConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      s.header,
	})
	if err != nil {
		s.setState(SocketDisconnected)
		return err
	}

	s.conn = conn
	s.setState(SocketConnected)
	s.wg.Add(2)
	go s.listen()
	go s.pingLoop()
	return nil
}

// Send writes one event.
func (s *Socket) Send(ctx context.Context, typ string, data any) error {
	if s.State() != SocketConnected || s.conn == nil {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	s.writeM.Lock()
	defer s.writeM.Unlock()
	return wsjson.Write(ctx, s.conn, chessdto.Event{Type: typ, Data: data})
}

func (s *Socket) JoinRoom(ctx context.Context, req chessdto.JoinRoom) error {
	return s.Send(ctx, chessdto.EventJoinRoom, req)
}

func (s *Socket) MakeMove(ctx context.Context, roomID string, move chessdto.MoveInput) error {
	return s.Send(ctx, chessdto.EventMakeMove, chessdto.MakeMove{RoomID: roomID, Move: move})
}

func (s *Socket) RequestBotMove(ctx context.Context, roomID string) error {
	return s.Send(ctx, chessdto.EventBotMove, chessdto.BotMove{RoomID: roomID})
}

func (s *Socket) listen() {
	defer s.wg.Done()
	for {
		var ev chessdto.Envelope
		if err := wsjson.Read(s.rootCtx, s.conn, &ev); err != nil {
			if !s.isStopping() {
				s.setState(SocketDisconnected)
			}
			return
		}
		s.cbM.RLock()
		callbacks := make([]callbackEntry, len(s.evCbs))
		copy(callbacks, s.evCbs)
		s.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(ev)
		}
	}
}

func (s *Socket) pingLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.rootCtx.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(s.rootCtx, 3*time.Second)
			err := s.conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				s.setState(SocketDisconnected)
				s.rootCancel()
				return
			}
		}
	}
}

func (s *Socket) OnEvent(cb EventCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextID++
	s.evCbs = append(s.evCbs, callbackEntry{id: s.nextID, callback: cb})
	return s.nextID
}

func (s *Socket) RemoveEventCallback(id int) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	for i, cb := range s.evCbs {
		if cb.id == id {
			s.evCbs = append(s.evCbs[:i], s.evCbs[i+1:]...)
			break
		}
	}
}

func (s *Socket) OnStateChange(cb StateCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextID++
	s.stateCbs = append(s.stateCbs, stateCallbackEntry{id: s.nextID, callback: cb})
	return s.nextID
}

func (s *Socket) State() SocketState {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.state
}

func (s *Socket) setState(state SocketState) {
	s.stateM.Lock()
	s.state = state
	s.stateM.Unlock()

	s.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(s.stateCbs))
	copy(callbacks, s.stateCbs)
	s.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

func (s *Socket) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "close")
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if s.rootCancel != nil {
			s.rootCancel()
		}
		s.setState(SocketClosed)
		return nil
	}
}

func (s *Socket) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// Watcher collects events of one type from the moment it is created.
type Watcher struct {
	s   *Socket
	id  int
	got chan json.RawMessage
}

// Watch starts collecting events of typ. Call it before sending the request
// whose reply you want, then Wait.
func (s *Socket) Watch(typ string) *Watcher {
	w := &Watcher{s: s, got: make(chan json.RawMessage, 32)}
	w.id = s.OnEvent(func(ev chessdto.Envelope) {
		if ev.Type != typ {
			return
		}
		select {
		case w.got <- ev.Data:
		default:
		}
	})
	return w
}

// Wait decodes the next collected event into out.
func (w *Watcher) Wait(ctx context.Context, out any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case raw := <-w.got:
		if out == nil {
			return nil
		}
		return json.Unmarshal(raw, out)
	}
}

func (w *Watcher) Stop() { w.s.RemoveEventCallback(w.id) }
