package room

import (
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/chess-coach/internal/adapter/chesspresenter"
	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/pkg/chessdto"
)

// room is guarded by mu. closed is set once the roster empties and the room
// has been dropped from the registry; a closed room never reopens.
type room struct {
	mu sync.Mutex

	id        string
	game      *nchess.Game
	players   []chessdto.Player
	history   []domain.MoveRecord
	mode      string
	bot       *chess.BotProfile
	adminKey  string
	adminConn string
	lastMove  *domain.MoveRecord
	lastBy    string
	closed    bool
}

func newRoom(id string) *room {
	return &room{
		id:   id,
		game: chess.NewGame(),
		mode: domain.GameTypePvP,
	}
}

func (r *room) playerIndex(connID string) int {
	for i, p := range r.players {
		if p.ID == connID {
			return i
		}
	}
	return -1
}

func (r *room) playerName(connID string) string {
	if i := r.playerIndex(connID); i >= 0 {
		return r.players[i].Name
	}
	return ""
}

func (r *room) connIDs() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

func (r *room) botToMove() bool {
	return r.mode == domain.GameTypeBot &&
		!chess.IsOver(r.game) &&
		r.game.Position().Turn() == chess.BotColor
}

func (r *room) state() chessdto.RoomState {
	st := chessdto.RoomState{
		RoomID:     r.id,
		FEN:        r.game.FEN(),
		Players:    append([]chessdto.Player{}, r.players...),
		History:    chesspresenter.ToDTOHistory(r.history),
		Turn:       chess.TurnLetter(r.game),
		Mode:       r.mode,
		LastMoveBy: r.lastBy,
		GameOver:   chess.IsOver(r.game),
		Opening:    openingOf(r.game),
	}
	if r.bot != nil {
		b := chesspresenter.ToDTOBot(*r.bot)
		st.Bot = &b
	}
	if r.lastMove != nil {
		m := chesspresenter.ToDTOMove(*r.lastMove)
		st.LastMove = &m
	}
	return st
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// openingOf names the deepest known opening reached by the game's moves.
func openingOf(g *nchess.Game) *chessdto.Opening {
	moves := g.Moves()
	if len(moves) == 0 {
		return nil
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if ecoBook == nil {
		return nil
	}
	o := ecoBook.Find(moves)
	if o == nil {
		return nil
	}
	return &chessdto.Opening{Code: o.Code(), Name: strings.TrimSpace(o.Title())}
}
