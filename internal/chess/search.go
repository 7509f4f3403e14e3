package chess

import (
	"math"
	"sort"

	nchess "github.com/corentings/chess/v2"
)

// RankedMove is one candidate produced by RankMoves.
type RankedMove struct {
	SAN   string `json:"san"`
	UCI   string `json:"uci"`
	From  string `json:"from"`
	To    string `json:"to"`
	Flags string `json:"flags"`
	Score int    `json:"score"`
}

// RankMoves scores every legal move of g by searching the reply tree to
// depth-1 plies and returns them best first for the side to move. Ties keep
// move generation order. A limit <= 0 returns all moves.
func RankMoves(g *nchess.Game, depth, limit int) []RankedMove {
	if g == nil || IsOver(g) {
		return nil
	}
	pos := g.Position()
	moves := pos.ValidMoves()
	childDepth := depth - 1
	if childDepth < 0 {
		childDepth = 0
	}

	ranked := make([]RankedMove, 0, len(moves))
	for i := range moves {
		mv := &moves[i]
		child := g.Clone()
		if err := child.Move(mv, nil); err != nil {
			continue
		}
		score := minimax(child, childDepth, math.MinInt, math.MaxInt, child.Position().Turn() == nchess.White)
		ranked = append(ranked, describeMove(pos, mv, score))
	}

	whiteToMove := pos.Turn() == nchess.White
	sort.SliceStable(ranked, func(i, j int) bool {
		if whiteToMove {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Score < ranked[j].Score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// minimax works on its own clone per branch so sibling searches never share
// board state.
func minimax(g *nchess.Game, depth, alpha, beta int, maximizing bool) int {
	if depth == 0 || IsOver(g) {
		return Evaluate(g)
	}
	moves := g.Position().ValidMoves()

	if maximizing {
		best := math.MinInt
		for i := range moves {
			child := g.Clone()
			if err := child.Move(&moves[i], nil); err != nil {
				continue
			}
			best = max(best, minimax(child, depth-1, alpha, beta, false))
			alpha = max(alpha, best)
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := math.MaxInt
	for i := range moves {
		child := g.Clone()
		if err := child.Move(&moves[i], nil); err != nil {
			continue
		}
		best = min(best, minimax(child, depth-1, alpha, beta, true))
		beta = min(beta, best)
		if beta <= alpha {
			break
		}
	}
	return best
}

func describeMove(pos *nchess.Position, mv *nchess.Move, score int) RankedMove {
	return RankedMove{
		SAN:   nchess.AlgebraicNotation{}.Encode(pos, mv),
		UCI:   nchess.UCINotation{}.Encode(pos, mv),
		From:  mv.S1().String(),
		To:    mv.S2().String(),
		Flags: Flags(pos, mv),
		Score: score,
	}
}
