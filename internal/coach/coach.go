package coach

import (
	"context"
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/obslog"
)

const alternativeCount = 3

// Analyzer judges a move played from fen.
type Analyzer interface {
	Analyze(ctx context.Context, fen, san string) (chess.AnalysisResult, error)
}

// Service prefers the engine analyzer and falls back to the local one on any
// engine failure. The only error it returns is for a position it cannot read.
type Service struct {
	engine Analyzer
	local  Analyzer
}

// NewService wires the analyzers. engine may be nil when no external engine
// is configured.
func NewService(engine, local Analyzer) *Service {
	return &Service{engine: engine, local: local}
}

func (s *Service) Analyze(ctx context.Context, fen, san string) (chess.AnalysisResult, error) {
	if _, err := chess.LoadFEN(fen); err != nil {
		return chess.AnalysisResult{}, err
	}
	if s.engine != nil {
		res, err := s.engine.Analyze(ctx, fen, san)
		if err == nil {
			return res, nil
		}
		obslog.L().Warn("engine_analysis_failed",
			zap.Error(err),
			zap.String("fen", fen),
			zap.String("san", san),
		)
	}
	res, err := s.local.Analyze(ctx, fen, san)
	if err != nil {
		return chess.AnalysisResult{}, err
	}
	res.Source = chess.SourceLightweight
	return res, nil
}

// writer renders the texts of one analyzer flavour ("lightweight" or "engine").
type writer struct {
	cat    *msgcat.Catalog
	prefix string
}

func (w writer) illegal(alts []chess.RankedMove, source string) chess.AnalysisResult {
	if alts == nil {
		alts = []chess.RankedMove{}
	}
	return chess.AnalysisResult{
		Verdict:       chess.VerdictIllegal,
		Message:       w.cat.Text("illegal.message", nil, "That move is not legal in this position."),
		Alternatives:  alts,
		StrategicIdea: w.cat.Text("illegal.idea", nil, ""),
		TargetSummary: w.cat.Text("illegal.target", nil, ""),
		Source:        source,
	}
}

// judged fills in everything after the delta has been computed.
func (w writer) judged(th chess.Thresholds, delta int, alts []chess.RankedMove, facts chess.MoveFacts, after *nchess.Game, mover nchess.Color, source string) chess.AnalysisResult {
	verdict := th.Grade(delta)
	var primary *chess.Target
	if targets := chess.FindTargets(after, mover); len(targets) > 0 {
		t := targets[0]
		primary = &t
	}
	idea := chess.ClassifyIdea(facts, primary)

	data := map[string]string{}
	summary := w.cat.Text(w.prefix+".target.none", nil, "")
	if primary != nil {
		data["Piece"] = primary.Piece
		data["PieceUpper"] = strings.ToUpper(primary.Piece)
		data["Square"] = primary.Square
		summary = w.cat.Text(w.prefix+".target.found", data, summary)
	}

	return chess.AnalysisResult{
		Verdict:       verdict,
		ScoreDelta:    delta,
		Message:       w.cat.Text(w.prefix+".verdict."+string(verdict), nil, ""),
		Alternatives:  alts,
		PrimaryTarget: primary,
		TargetSummary: summary,
		StrategicIdea: w.cat.Text(w.prefix+".idea."+string(idea), data, ""),
		Source:        source,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var errNoLines = errors.New("coach: engine returned no usable lines")
