package coach

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/msgcat"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type fakeSource struct {
	byMultiPV map[int]uci.Result
	err       error
	calls     int
}

func (f *fakeSource) Analyze(_ context.Context, _ string, multiPV int) (uci.Result, error) {
	f.calls++
	if f.err != nil {
		return uci.Result{}, f.err
	}
	return f.byMultiPV[multiPV], nil
}

func TestLocalAnalyzerIllegalMove(t *testing.T) {
	a := NewLocalAnalyzer(msgcat.MustDefault())
	res, err := a.Analyze(context.Background(), startFEN, "e5")
	require.NoError(t, err)
	require.Equal(t, chess.VerdictIllegal, res.Verdict)
	require.NotEmpty(t, res.Alternatives)
	require.Equal(t, "That move is not legal in this position.", res.Message)
	require.Nil(t, res.PrimaryTarget)
	require.Equal(t, "No target identified.", res.TargetSummary)
}

func TestLocalAnalyzerVerdictMatchesThresholds(t *testing.T) {
	a := NewLocalAnalyzer(msgcat.MustDefault())
	for _, san := range []string{"e4", "Nf3", "a4", "Nh3", "f3"} {
		res, err := a.Analyze(context.Background(), startFEN, san)
		require.NoError(t, err, san)
		require.Equal(t, chess.SourceLightweight, res.Source)
		require.Equal(t, chess.LocalThresholds.Grade(res.ScoreDelta), res.Verdict, san)
		require.GreaterOrEqual(t, res.ScoreDelta, 0)
		require.Len(t, res.Alternatives, 3)
		require.NotEmpty(t, res.StrategicIdea)
	}
}

func TestLocalAnalyzerCenterIdea(t *testing.T) {
	a := NewLocalAnalyzer(msgcat.MustDefault())
	res, err := a.Analyze(context.Background(), startFEN, "e4")
	require.NoError(t, err)
	require.Equal(t, "It increases control of the center, giving your pieces better mobility.", res.StrategicIdea)
	require.Equal(t, "Main target: improves piece activity and board control.", res.TargetSummary)
}

func TestLocalAnalyzerTarget(t *testing.T) {
	// 1.e4 d5: exd5 captures, Nc3 is quiet but the e4 pawn hits d5
	fen := "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2"
	a := NewLocalAnalyzer(msgcat.MustDefault())
	res, err := a.Analyze(context.Background(), fen, "Nc3")
	require.NoError(t, err)
	require.NotNil(t, res.PrimaryTarget)
	require.Equal(t, "d5", res.PrimaryTarget.Square)
	require.Equal(t, "It builds pressure on the pawn on d5, creating tactical threats.", res.StrategicIdea)
	require.Equal(t, "Main target: PAWN on d5.", res.TargetSummary)
}

func TestEngineAnalyzer(t *testing.T) {
	src := &fakeSource{byMultiPV: map[int]uci.Result{
		3: {BestMove: "e2e4", Lines: []uci.Line{
			{MultiPV: 1, Move: "e2e4", Score: 35},
			{MultiPV: 2, Move: "d2d4", Score: 30},
			{MultiPV: 3, Move: "g1f3", Score: 25},
		}},
		// black to move after White's reply, engine reports from Black's side
		1: {BestMove: "e7e5", Lines: []uci.Line{{MultiPV: 1, Move: "e7e5", Score: 100}}},
	}}
	a := NewEngineAnalyzer(src, msgcat.MustDefault())
	res, err := a.Analyze(context.Background(), startFEN, "a3")
	require.NoError(t, err)
	require.Equal(t, chess.SourceEngine, res.Source)
	require.Equal(t, "e4", res.Alternatives[0].SAN)
	require.Equal(t, 35, res.Alternatives[0].Score)
	// normalized post-move score is -100, so the delta is 135
	require.Equal(t, 135, res.ScoreDelta)
	require.Equal(t, chess.VerdictGood, res.Verdict)
	require.Equal(t, "Playable move, but Stockfish finds a stronger continuation.", res.Message)
	require.Equal(t, 2, src.calls)
}

func TestEngineAnalyzerIllegalUsesEngineAlternatives(t *testing.T) {
	src := &fakeSource{byMultiPV: map[int]uci.Result{
		3: {Lines: []uci.Line{{MultiPV: 1, Move: "e2e4", Score: 35}}},
	}}
	a := NewEngineAnalyzer(src, msgcat.MustDefault())
	res, err := a.Analyze(context.Background(), startFEN, "Qh5")
	require.NoError(t, err)
	require.Equal(t, chess.VerdictIllegal, res.Verdict)
	require.Len(t, res.Alternatives, 1)
	require.Equal(t, 1, src.calls)
}

func TestEngineAnalyzerMalformedOutput(t *testing.T) {
	src := &fakeSource{byMultiPV: map[int]uci.Result{3: {BestMove: "e2e4"}}}
	_, err := NewEngineAnalyzer(src, msgcat.MustDefault()).Analyze(context.Background(), startFEN, "e4")
	require.ErrorIs(t, err, errNoLines)
}

func TestServiceFallsBackToLocal(t *testing.T) {
	cat := msgcat.MustDefault()
	src := &fakeSource{err: errors.New("exec: stockfish not found")}
	svc := NewService(NewEngineAnalyzer(src, cat), NewLocalAnalyzer(cat))

	res, err := svc.Analyze(context.Background(), startFEN, "e4")
	require.NoError(t, err)
	require.Equal(t, chess.SourceLightweight, res.Source)
	require.Equal(t, 1, src.calls)

	res, err = svc.Analyze(context.Background(), startFEN, "Ke2")
	require.NoError(t, err)
	require.Equal(t, chess.VerdictIllegal, res.Verdict)
	require.NotEmpty(t, res.Alternatives)
}

func TestServiceWithoutEngine(t *testing.T) {
	svc := NewService(nil, NewLocalAnalyzer(msgcat.MustDefault()))
	res, err := svc.Analyze(context.Background(), startFEN, "d4")
	require.NoError(t, err)
	require.Equal(t, chess.SourceLightweight, res.Source)

	_, err = svc.Analyze(context.Background(), "not a fen", "d4")
	require.ErrorIs(t, err, chess.ErrInvalidFEN)
}
