package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-coach/internal/room"
	"github.com/park285/chess-coach/pkg/chessdto"
)

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startServer(t *testing.T) (*Hub, *room.Manager, string) {
	t.Helper()
	hub := NewHub(Options{})
	mgr := room.NewManager(hub, room.Options{BotReplyDelay: time.Millisecond})
	srv := httptest.NewServer(hub.Handler(mgr))
	t.Cleanup(srv.Close)
	return hub, mgr, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, typ string, data any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, chessdto.Event{Type: typ, Data: data}))
}

// next reads until an event of typ arrives.
func next(t *testing.T, c *websocket.Conn, typ string, into any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var msg inbound
		require.NoError(t, wsjson.Read(ctx, c, &msg))
		if msg.Type == typ {
			require.NoError(t, json.Unmarshal(msg.Data, into))
			return
		}
	}
}

func TestJoinAndMoveOverSocket(t *testing.T) {
	hub, mgr, url := startServer(t)
	a := dial(t, url)
	b := dial(t, url)

	send(t, a, chessdto.EventJoinRoom, chessdto.JoinRoom{RoomID: "lobby", PlayerName: "Ann"})
	var role chessdto.RoleState
	next(t, a, chessdto.EventRoleState, &role)
	require.True(t, role.IsAdmin)
	var st chessdto.RoomState
	next(t, a, chessdto.EventRoomState, &st)
	require.Len(t, st.Players, 1)

	send(t, b, chessdto.EventJoinRoom, chessdto.JoinRoom{RoomID: "lobby", PlayerName: "Bob"})
	next(t, b, chessdto.EventRoleState, &role)
	require.False(t, role.IsAdmin)
	next(t, b, chessdto.EventRoomState, &st)
	require.Len(t, st.Players, 2)
	next(t, a, chessdto.EventRoomState, &st)
	require.Len(t, st.Players, 2)
	require.Equal(t, 2, hub.Count())

	send(t, a, chessdto.EventMakeMove, chessdto.MakeMove{RoomID: "lobby", Move: chessdto.MoveInput{From: "g1", To: "f3"}})
	next(t, b, chessdto.EventRoomState, &st)
	require.NotNil(t, st.LastMove)
	require.Equal(t, "Nf3", st.LastMove.SAN)
	require.Equal(t, "Ann", st.LastMoveBy)

	send(t, b, chessdto.EventMakeMove, map[string]any{"roomId": "lobby", "move": "Qxh7"})
	var bad chessdto.InvalidMove
	next(t, b, chessdto.EventInvalidMove, &bad)
	require.Equal(t, "Qxh7", bad.Move)

	require.NoError(t, a.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool {
		snap, ok := mgr.Snapshot("lobby")
		return ok && len(snap.Players) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBotReplyOverSocket(t *testing.T) {
	_, _, url := startServer(t)
	c := dial(t, url)

	send(t, c, chessdto.EventJoinRoom, chessdto.JoinRoom{RoomID: "solo", Mode: "bot", Bot: &chessdto.BotProfile{ID: "bot-200"}})
	var st chessdto.RoomState
	next(t, c, chessdto.EventRoomState, &st)
	require.Equal(t, "bot", st.Mode)

	send(t, c, chessdto.EventMakeMove, chessdto.MakeMove{RoomID: "solo", Move: chessdto.MoveInput{Text: "e4"}})
	next(t, c, chessdto.EventRoomState, &st)
	require.Equal(t, "b", st.Turn)
	next(t, c, chessdto.EventRoomState, &st)
	require.Equal(t, "w", st.Turn)
	require.Equal(t, "Pawn Rookie", st.LastMoveBy)
}

func TestBadEventsGetErrors(t *testing.T) {
	_, _, url := startServer(t)
	c := dial(t, url)

	send(t, c, "resign", map[string]string{"roomId": "x"})
	var e chessdto.ErrorEvent
	next(t, c, chessdto.EventError, &e)
	require.Equal(t, "unknown event type", e.Message)

	send(t, c, chessdto.EventJoinRoom, chessdto.JoinRoom{})
	next(t, c, chessdto.EventError, &e)
	require.Equal(t, "room id required", e.Message)
}

func TestSendSkipsUnknownConnections(t *testing.T) {
	hub := NewHub(Options{})
	hub.Send([]string{"nobody"}, chessdto.Event{Type: chessdto.EventRoomState})
	require.Zero(t, hub.Count())
}
