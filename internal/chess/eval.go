package chess

import (
	nchess "github.com/corentings/chess/v2"
)

const (
	MateScore       = 99999
	centerBonus     = 20
	pawnStepBonus   = 5
	mobilityPerMove = 2
)

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   100,
	nchess.Knight: 320,
	nchess.Bishop: 330,
	nchess.Rook:   500,
	nchess.Queen:  900,
	nchess.King:   20000,
}

var centerSquares = map[nchess.Square]struct{}{
	nchess.D4: {},
	nchess.E4: {},
	nchess.D5: {},
	nchess.E5: {},
}

// PieceValue returns the material value of a piece kind in centipawns.
func PieceValue(pt nchess.PieceType) int { return pieceValues[pt] }

func IsCenter(sq nchess.Square) bool {
	_, ok := centerSquares[sq]
	return ok
}

// Evaluate scores the current position of g from White's point of view.
// Finished games short-circuit: a mated side to move gets the worst score,
// every other result is 0. Evaluate never mutates g.
func Evaluate(g *nchess.Game) int {
	if g == nil {
		return 0
	}
	pos := g.Position()
	if IsOver(g) {
		if g.Method() == nchess.Checkmate {
			if pos.Turn() == nchess.White {
				return -MateScore
			}
			return MateScore
		}
		return 0
	}

	score := 0
	board := pos.Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			sq := nchess.NewSquare(file, rank)
			piece := board.Piece(sq)
			if piece == nchess.NoPiece {
				continue
			}
			v := pieceValues[piece.Type()]
			if IsCenter(sq) {
				v += centerBonus
			}
			if piece.Type() == nchess.Pawn {
				v += pawnAdvance(piece.Color(), int(rank-nchess.Rank1))
			}
			if piece.Color() == nchess.White {
				score += v
			} else {
				score -= v
			}
		}
	}

	mobility := len(pos.ValidMoves()) * mobilityPerMove
	if pos.Turn() == nchess.White {
		return score + mobility
	}
	return score - mobility
}

// pawnAdvance is the bonus for how far a pawn has walked from its home rank.
// rank is zero-based from White's side.
func pawnAdvance(c nchess.Color, rank int) int {
	if c == nchess.White {
		return (rank - 1) * pawnStepBonus
	}
	return (6 - rank) * pawnStepBonus
}
