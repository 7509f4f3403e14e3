package chessdto

import "encoding/json"

// Real-time event names.
const (
	EventJoinRoom    = "join-room"
	EventMakeMove    = "make-move"
	EventBotMove     = "bot-move"
	EventRoleState   = "role-state"
	EventRoomState   = "room-state"
	EventInvalidMove = "invalid-move"
	EventError       = "error"
)

// Event is an outbound real-time message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Envelope is an inbound real-time message whose data is decoded by type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Opening struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type RoleState struct {
	IsAdmin bool `json:"isAdmin"`
}

type RoomState struct {
	RoomID     string         `json:"roomId"`
	FEN        string         `json:"fen"`
	Players    []Player       `json:"players"`
	History    []HistoryEntry `json:"history"`
	Turn       string         `json:"turn"`
	Mode       string         `json:"mode"`
	Bot        *BotProfile    `json:"bot,omitempty"`
	LastMove   *HistoryEntry  `json:"lastMove,omitempty"`
	LastMoveBy string         `json:"lastMoveBy,omitempty"`
	GameOver   bool           `json:"gameOver"`
	Opening    *Opening       `json:"opening,omitempty"`
}

type InvalidMove struct {
	Move string `json:"move"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
