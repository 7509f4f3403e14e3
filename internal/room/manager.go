// Package room owns the authoritative state of every live game room.
package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/obslog"
	"github.com/park285/chess-coach/pkg/chessdto"
)

const (
	DefaultBotReplyDelay = 450 * time.Millisecond
	defaultBotID         = "bot-1200"
	fallbackMoverName    = "Player"
)

var (
	ErrRoomRequired = errors.New("room id required")
	ErrInvalidBot   = errors.New("invalid bot profile")
)

// Broadcaster delivers events to connections. Send must not block on a slow
// peer; the manager calls it while holding a room lock.
type Broadcaster interface {
	Send(connIDs []string, ev chessdto.Event)
}

type Options struct {
	BotReplyDelay time.Duration
	Policy        chess.BlunderPolicy
	// CredentialValid screens admin credentials before a room may record or
	// match one. Nil accepts any non-empty credential.
	CredentialValid func(ctx context.Context, credential string) bool
}

type Manager struct {
	mu    sync.Mutex
	rooms map[string]*room

	out             Broadcaster
	delay           time.Duration
	policy          chess.BlunderPolicy
	credentialValid func(context.Context, string) bool
	afterFunc       func(time.Duration, func())
}

func NewManager(out Broadcaster, opts Options) *Manager {
	delay := opts.BotReplyDelay
	if delay <= 0 {
		delay = DefaultBotReplyDelay
	}
	policy := opts.Policy
	if policy == nil {
		policy = chess.NeverBlunder
	}
	return &Manager{
		rooms:           make(map[string]*room),
		out:             out,
		delay:           delay,
		policy:          serialized(policy),
		credentialValid: opts.CredentialValid,
		afterFunc:       func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// serialized makes a policy safe to call from concurrent bot searches.
func serialized(p chess.BlunderPolicy) chess.BlunderPolicy {
	var mu sync.Mutex
	return func(b chess.BotProfile, c []chess.RankedMove) int {
		mu.Lock()
		defer mu.Unlock()
		return p(b, c)
	}
}

// lock returns the room locked, creating it when create is set. It returns
// nil for an unknown room when create is false.
func (m *Manager) lock(roomID string, create bool) *room {
	for {
		m.mu.Lock()
		r, ok := m.rooms[roomID]
		if !ok {
			if !create {
				m.mu.Unlock()
				return nil
			}
			r = newRoom(roomID)
			m.rooms[roomID] = r
			obslog.L().Info("room_created", zap.String("room_id", roomID))
		}
		m.mu.Unlock()

		r.mu.Lock()
		if !r.closed {
			return r
		}
		r.mu.Unlock()
		if !create {
			return nil
		}
	}
}

// ResolveBot turns a requested bot into the profile a room will play with.
// Preset ids map to the fixed ladder; anything else is treated as an
// adaptive profile and gets search settings derived from its rating.
func ResolveBot(req chessdto.BotProfile) (chess.BotProfile, error) {
	if p, err := chess.PresetByID(req.ID); err == nil {
		return p, nil
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Rating <= 0 {
		return chess.BotProfile{}, fmt.Errorf("%w: name and rating required", ErrInvalidBot)
	}
	p := chess.BotFromRating(strings.TrimSpace(req.ID), name, req.Rating)
	if err := chess.ValidateBotProfile(p); err != nil {
		return chess.BotProfile{}, fmt.Errorf("%w: %v", ErrInvalidBot, err)
	}
	return p, nil
}

func (m *Manager) Join(ctx context.Context, connID string, req chessdto.JoinRoom) error {
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" || connID == "" {
		return ErrRoomRequired
	}
	var bot *chess.BotProfile
	if req.Bot != nil {
		b, err := ResolveBot(*req.Bot)
		if err != nil {
			return err
		}
		bot = &b
	}
	key := strings.TrimSpace(req.Credential())
	if key != "" && m.credentialValid != nil && !m.credentialValid(ctx, key) {
		obslog.L().Warn("room_credential_rejected", zap.String("room_id", roomID), zap.String("conn_id", connID))
		key = ""
	}

	r := m.lock(roomID, true)
	defer r.mu.Unlock()

	if r.playerIndex(connID) < 0 {
		name := strings.TrimSpace(req.PlayerName)
		if name == "" {
			name = fmt.Sprintf("Player%d", len(r.players)+1)
		}
		r.players = append(r.players, chessdto.Player{ID: connID, Name: name})
	}

	if domain.NormalizeGameType(req.Mode) == domain.GameTypeBot {
		r.mode = domain.GameTypeBot
		// the bot is fixed once the game has started
		if bot != nil && (r.bot == nil || len(r.history) == 0) {
			r.bot = bot
		}
		if r.bot == nil {
			def, _ := chess.PresetByID(defaultBotID)
			r.bot = &def
		}
	}

	if r.adminKey == "" && key != "" {
		r.adminKey = key
	}
	isAdmin := false
	switch {
	case key != "" && key == r.adminKey:
		if prev := r.adminConn; prev != "" && prev != connID {
			m.out.Send([]string{prev}, chessdto.Event{Type: chessdto.EventRoleState, Data: chessdto.RoleState{IsAdmin: false}})
		}
		r.adminConn = connID
		isAdmin = true
	case r.adminConn == connID:
		isAdmin = true
	case r.adminConn == "" && len(r.players) == 1:
		r.adminConn = connID
		isAdmin = true
	}

	obslog.L().Info("room_join",
		zap.String("room_id", roomID),
		zap.String("conn_id", connID),
		zap.String("mode", r.mode),
		zap.Int("players", len(r.players)),
		zap.Bool("admin", isAdmin),
	)
	m.out.Send([]string{connID}, chessdto.Event{Type: chessdto.EventRoleState, Data: chessdto.RoleState{IsAdmin: isAdmin}})
	m.broadcast(r)
	return nil
}

// Move applies a human move. Moves for unknown rooms are dropped.
func (m *Manager) Move(connID, roomID, move string) {
	r := m.lock(strings.TrimSpace(roomID), false)
	if r == nil {
		return
	}
	defer r.mu.Unlock()

	reject := func(reason string) {
		obslog.L().Debug("room_move_rejected",
			zap.String("room_id", r.id),
			zap.String("conn_id", connID),
			zap.String("move", move),
			zap.String("reason", reason),
		)
		m.out.Send([]string{connID}, chessdto.Event{Type: chessdto.EventInvalidMove, Data: chessdto.InvalidMove{Move: move}})
	}
	if chess.IsOver(r.game) {
		reject("game_over")
		return
	}
	if r.mode == domain.GameTypeBot && r.game.Position().Turn() == chess.BotColor {
		reject("bot_turn")
		return
	}
	rec, err := chess.Apply(r.game, move)
	if err != nil {
		reject("illegal")
		return
	}

	r.history = append(r.history, rec)
	r.lastMove = &rec
	r.lastBy = r.playerName(connID)
	if r.lastBy == "" {
		r.lastBy = fallbackMoverName
	}
	obslog.L().Info("room_move",
		zap.String("room_id", r.id),
		zap.String("san", rec.SAN),
		zap.Int("ply", len(r.history)),
	)
	m.broadcast(r)

	if r.botToMove() {
		m.scheduleBotReply(r)
	}
}

func (m *Manager) scheduleBotReply(r *room) {
	id, ply := r.id, len(r.history)
	m.afterFunc(m.delay, func() { m.playBot(id, r, ply, nil) })
}

// BotMove plays the bot's reply on request. It does nothing unless the room
// is in bot mode and the bot is to move.
func (m *Manager) BotMove(roomID string, requested *chessdto.BotProfile) {
	m.playBot(strings.TrimSpace(roomID), nil, -1, requested)
}

// playBot searches outside the room lock on a copy of the game and applies
// the result only if the room still sits at the same ply. expect and ply pin
// a scheduled reply to the room and position it was queued for.
func (m *Manager) playBot(roomID string, expect *room, ply int, requested *chessdto.BotProfile) {
	r := m.lock(roomID, false)
	if r == nil {
		return
	}
	if (expect != nil && r != expect) || (ply >= 0 && len(r.history) != ply) || !r.botToMove() {
		r.mu.Unlock()
		if ply >= 0 {
			obslog.L().Debug("bot_reply_stale", zap.String("room_id", roomID), zap.Int("ply", ply))
		}
		return
	}
	if r.bot == nil && requested != nil {
		if b, err := ResolveBot(*requested); err == nil {
			r.bot = &b
		}
	}
	if r.bot == nil {
		r.mu.Unlock()
		return
	}
	bot := *r.bot
	snapshot := r.game.Clone()
	start := len(r.history)
	r.mu.Unlock()

	began := time.Now()
	choice, ok := chess.SelectBotMove(snapshot, bot, m.policy)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.history) != start || !r.botToMove() {
		obslog.L().Debug("bot_move_discarded", zap.String("room_id", roomID), zap.Int("ply", start))
		return
	}
	rec, err := chess.Apply(r.game, choice.UCI)
	if err != nil {
		obslog.L().Error("bot_move_apply_failed", zap.String("room_id", roomID), zap.String("uci", choice.UCI), zap.Error(err))
		return
	}
	rec.By = bot.Name
	r.history = append(r.history, rec)
	r.lastMove = &rec
	r.lastBy = bot.Name
	obslog.L().Info("bot_move",
		zap.String("room_id", roomID),
		zap.String("bot", bot.Name),
		zap.String("san", rec.SAN),
		zap.Int("score", choice.Score),
		zap.Duration("elapsed", time.Since(began)),
	)
	m.broadcast(r)
}

// Disconnect removes connID from every room it joined. An admin that leaves
// is not replaced; empty rooms are dropped.
func (m *Manager) Disconnect(connID string) {
	m.mu.Lock()
	list := make([]*room, 0, len(m.rooms))
	for _, r := range m.rooms {
		list = append(list, r)
	}
	m.mu.Unlock()

	for _, r := range list {
		r.mu.Lock()
		idx := r.playerIndex(connID)
		if r.closed || idx < 0 {
			r.mu.Unlock()
			continue
		}
		r.players = append(r.players[:idx], r.players[idx+1:]...)
		if r.adminConn == connID {
			r.adminConn = ""
		}
		if len(r.players) == 0 {
			r.closed = true
			m.mu.Lock()
			if m.rooms[r.id] == r {
				delete(m.rooms, r.id)
			}
			m.mu.Unlock()
			obslog.L().Info("room_closed", zap.String("room_id", r.id), zap.Int("plies", len(r.history)))
		} else {
			m.broadcast(r)
		}
		r.mu.Unlock()
	}
}

// Snapshot returns the current state of a room.
func (m *Manager) Snapshot(roomID string) (chessdto.RoomState, bool) {
	r := m.lock(roomID, false)
	if r == nil {
		return chessdto.RoomState{}, false
	}
	defer r.mu.Unlock()
	return r.state(), true
}

// IsAdmin reports whether connID currently holds admin trust in roomID.
func (m *Manager) IsAdmin(roomID, connID string) bool {
	r := m.lock(roomID, false)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()
	return connID != "" && r.adminConn == connID
}

// Rooms lists the ids of live rooms.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// broadcast sends the room state to every member. Callers hold r.mu.
func (m *Manager) broadcast(r *room) {
	m.out.Send(r.connIDs(), chessdto.Event{Type: chessdto.EventRoomState, Data: r.state()})
}
