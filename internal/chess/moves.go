package chess

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-coach/internal/domain"
)

var (
	ErrInvalidFEN  = errors.New("chess: invalid fen")
	ErrIllegalMove = errors.New("chess: illegal move")
)

// NewGame starts from the standard initial position.
func NewGame() *nchess.Game { return nchess.NewGame() }

// LoadFEN builds a game whose current position is fen.
func LoadFEN(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt), nil
}

// FindLegal looks up text among the legal moves of pos. SAN is tried first,
// coordinate notation second. The returned move belongs to pos.ValidMoves.
func FindLegal(pos *nchess.Position, text string) (*nchess.Move, bool) {
	text = strings.TrimSpace(text)
	if pos == nil || text == "" {
		return nil, false
	}
	moves := pos.ValidMoves()
	san := nchess.AlgebraicNotation{}
	for i := range moves {
		if san.Encode(pos, &moves[i]) == text {
			return &moves[i], true
		}
	}
	lower := strings.ToLower(text)
	uci := nchess.UCINotation{}
	for i := range moves {
		if uci.Encode(pos, &moves[i]) == lower {
			return &moves[i], true
		}
	}
	return nil, false
}

// Apply plays text on g and describes the move in log form.
func Apply(g *nchess.Game, text string) (domain.MoveRecord, error) {
	pos := g.Position()
	mv, ok := FindLegal(pos, text)
	if !ok {
		return domain.MoveRecord{}, ErrIllegalMove
	}
	rec := Record(pos, mv)
	if err := g.Move(mv, nil); err != nil {
		return domain.MoveRecord{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return rec, nil
}

// Record converts a legal move of pos into a log entry.
func Record(pos *nchess.Position, mv *nchess.Move) domain.MoveRecord {
	return domain.MoveRecord{
		SAN:   nchess.AlgebraicNotation{}.Encode(pos, mv),
		From:  mv.S1().String(),
		To:    mv.S2().String(),
		Flags: Flags(pos, mv),
	}
}

// Flags describes mv with single-letter tags, see domain.MoveRecord.
func Flags(pos *nchess.Position, mv *nchess.Move) string {
	var b strings.Builder
	piece := pos.Board().Piece(mv.S1())
	switch {
	case mv.HasTag(nchess.EnPassant):
		b.WriteByte('e')
	case mv.HasTag(nchess.Capture):
		b.WriteByte('c')
	case piece.Type() == nchess.Pawn && rankDistance(mv.S1(), mv.S2()) == 2:
		b.WriteByte('b')
	}
	if mv.Promo() != nchess.NoPieceType {
		b.WriteByte('p')
	}
	if mv.HasTag(nchess.KingSideCastle) {
		b.WriteByte('k')
	}
	if mv.HasTag(nchess.QueenSideCastle) {
		b.WriteByte('q')
	}
	if b.Len() == 0 {
		return "n"
	}
	return b.String()
}

func rankDistance(a, b nchess.Square) int {
	d := int(a.Rank()) - int(b.Rank())
	if d < 0 {
		return -d
	}
	return d
}

// TurnLetter returns "w" or "b" for the side to move.
func TurnLetter(g *nchess.Game) string {
	if g.Position().Turn() == nchess.White {
		return "w"
	}
	return "b"
}

// IsOver reports whether the game has a result. Threefold repetition and the
// fifty-move rule end the game even though the library only offers them as
// claimable draws.
func IsOver(g *nchess.Game) bool {
	return g.Outcome() != nchess.NoOutcome || drawClaimable(g)
}

func drawClaimable(g *nchess.Game) bool {
	for _, m := range g.EligibleDraws() {
		if m == nchess.ThreefoldRepetition || m == nchess.FiftyMoveRule {
			return true
		}
	}
	return false
}
