package coach

import (
	"context"

	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/msgcat"
)

const localDepth = 2

// LocalAnalyzer judges moves with the built-in search.
type LocalAnalyzer struct {
	w writer
}

func NewLocalAnalyzer(cat *msgcat.Catalog) *LocalAnalyzer {
	return &LocalAnalyzer{w: writer{cat: cat, prefix: "lightweight"}}
}

func (a *LocalAnalyzer) Analyze(ctx context.Context, fen, san string) (chess.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return chess.AnalysisResult{}, err
	}
	g, err := chess.LoadFEN(fen)
	if err != nil {
		return chess.AnalysisResult{}, err
	}
	pos := g.Position()
	alts := chess.RankMoves(g, localDepth, alternativeCount)

	mv, ok := chess.FindLegal(pos, san)
	if !ok {
		return a.w.illegal(alts, chess.SourceLightweight), nil
	}
	facts := chess.FactsOf(pos, mv)
	mover := pos.Turn()

	after := g.Clone()
	if err := after.Move(mv, nil); err != nil {
		return a.w.illegal(alts, chess.SourceLightweight), nil
	}
	afterScore := chess.Evaluate(after)
	best := afterScore
	if len(alts) > 0 {
		best = alts[0].Score
	}
	delta := abs(best - afterScore)
	return a.w.judged(chess.LocalThresholds, delta, alts, facts, after, mover, chess.SourceLightweight), nil
}
