package coach

import (
	"context"
	"fmt"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/msgcat"
)

// LineSource produces principal variations for a position; *uci.Engine is
// the production implementation.
type LineSource interface {
	Analyze(ctx context.Context, fen string, multiPV int) (uci.Result, error)
}

// EngineAnalyzer judges moves with an external engine.
type EngineAnalyzer struct {
	src LineSource
	w   writer
}

func NewEngineAnalyzer(src LineSource, cat *msgcat.Catalog) *EngineAnalyzer {
	return &EngineAnalyzer{src: src, w: writer{cat: cat, prefix: "engine"}}
}

func (a *EngineAnalyzer) Analyze(ctx context.Context, fen, san string) (chess.AnalysisResult, error) {
	g, err := chess.LoadFEN(fen)
	if err != nil {
		return chess.AnalysisResult{}, err
	}
	pos := g.Position()

	pre, err := a.src.Analyze(ctx, pos.String(), alternativeCount)
	if err != nil {
		return chess.AnalysisResult{}, fmt.Errorf("analyze position: %w", err)
	}
	alts := rankLines(pos, pre.Lines, alternativeCount)
	if len(alts) == 0 {
		return chess.AnalysisResult{}, errNoLines
	}

	mv, ok := chess.FindLegal(pos, san)
	if !ok {
		return a.w.illegal(alts, chess.SourceEngine), nil
	}
	facts := chess.FactsOf(pos, mv)
	mover := pos.Turn()

	after := g.Clone()
	if err := after.Move(mv, nil); err != nil {
		return a.w.illegal(alts, chess.SourceEngine), nil
	}
	played, err := a.scoreAfter(ctx, after, mover)
	if err != nil {
		return chess.AnalysisResult{}, err
	}
	delta := abs(alts[0].Score - played)
	return a.w.judged(chess.EngineThresholds, delta, alts, facts, after, mover, chess.SourceEngine), nil
}

// scoreAfter returns the White-relative evaluation of the position after the
// played move. Finished games are scored without asking the engine.
func (a *EngineAnalyzer) scoreAfter(ctx context.Context, after *nchess.Game, mover nchess.Color) (int, error) {
	if chess.IsOver(after) {
		if after.Method() != nchess.Checkmate {
			return 0, nil
		}
		if mover == nchess.White {
			return uci.MateValue, nil
		}
		return -uci.MateValue, nil
	}
	pos := after.Position()
	res, err := a.src.Analyze(ctx, pos.String(), 1)
	if err != nil {
		return 0, fmt.Errorf("analyze played move: %w", err)
	}
	if len(res.Lines) == 0 {
		return 0, errNoLines
	}
	return uci.NormalizeToWhite(res.Lines[0].Score, pos.Turn() == nchess.White), nil
}

// rankLines converts engine lines into ranked moves, replaying each leading
// move on its own copy of pos. Lines whose move is not legal are dropped.
func rankLines(pos *nchess.Position, lines []uci.Line, limit int) []chess.RankedMove {
	whiteToMove := pos.Turn() == nchess.White
	out := make([]chess.RankedMove, 0, len(lines))
	for _, l := range lines {
		g, err := chess.LoadFEN(pos.String())
		if err != nil {
			continue
		}
		fresh := g.Position()
		mv, ok := chess.FindLegal(fresh, l.Move)
		if !ok {
			continue
		}
		rec := chess.Record(fresh, mv)
		out = append(out, chess.RankedMove{
			SAN:   rec.SAN,
			UCI:   l.Move,
			From:  rec.From,
			To:    rec.To,
			Flags: rec.Flags,
			Score: uci.NormalizeToWhite(l.Score, whiteToMove),
		})
		if len(out) == limit {
			break
		}
	}
	return out
}
