package chess

import (
	"errors"
	"math/rand"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func playAll(t *testing.T, moves ...string) *nchess.Game {
	t.Helper()
	g := NewGame()
	for _, mv := range moves {
		if _, err := Apply(g, mv); err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
	}
	return g
}

func TestEvaluateStartPosition(t *testing.T) {
	// symmetric material; only White's 20 legal moves count
	if got := Evaluate(NewGame()); got != 40 {
		t.Fatalf("start evaluation = %d, want 40", got)
	}
}

func TestEvaluateCheckmatedSide(t *testing.T) {
	g := playAll(t, "f3", "e5", "g4", "Qh4#")
	if got := Evaluate(g); got != -MateScore {
		t.Fatalf("white mated: got %d, want %d", got, -MateScore)
	}
}

func TestRankMovesStartDepthOne(t *testing.T) {
	g := NewGame()
	ranked := RankMoves(g, 1, 0)
	if len(ranked) != len(g.Position().ValidMoves()) {
		t.Fatalf("ranked %d moves, want %d", len(ranked), len(g.Position().ValidMoves()))
	}
	plausible := map[string]bool{"e4": true, "d4": true, "Nf3": true, "c4": true}
	if !plausible[ranked[0].SAN] {
		t.Fatalf("unexpected best move %q", ranked[0].SAN)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("not sorted descending at %d: %d > %d", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestRankMovesBlackSortsAscending(t *testing.T) {
	g := playAll(t, "e4")
	ranked := RankMoves(g, 1, 5)
	if len(ranked) != 5 {
		t.Fatalf("limit ignored: %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score < ranked[i-1].Score {
			t.Fatalf("not sorted ascending at %d", i)
		}
	}
}

func TestRankMovesFindsMateInOne(t *testing.T) {
	g := playAll(t, "e4", "e5", "Bc4", "Nc6", "Qh5", "Nf6")
	ranked := RankMoves(g, 2, 3)
	if len(ranked) == 0 || ranked[0].SAN != "Qxf7#" {
		t.Fatalf("expected Qxf7# first, got %+v", ranked)
	}
	if ranked[0].Score != MateScore {
		t.Fatalf("mate score = %d", ranked[0].Score)
	}
}

func TestRankMovesDepthZeroUsesStaticScore(t *testing.T) {
	g := NewGame()
	zero := RankMoves(g, 0, 0)
	one := RankMoves(g, 1, 0)
	if len(zero) != len(one) || zero[0].Score != one[0].Score {
		t.Fatalf("depth 0 and 1 should both score the child statically")
	}
}

func TestRankMovesFinishedGame(t *testing.T) {
	g := playAll(t, "f3", "e5", "g4", "Qh4#")
	if got := RankMoves(g, 2, 3); len(got) != 0 {
		t.Fatalf("expected no moves after mate, got %d", len(got))
	}
	if _, ok := SelectBotMove(g, presetBots[0], NeverBlunder); ok {
		t.Fatalf("expected no bot move after mate")
	}
}

func TestSelectBotMoveIsLegal(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	policy := RandomBlunder(r)
	g := playAll(t, "e4")
	for _, p := range Presets()[:4] {
		mv, ok := SelectBotMove(g, p, policy)
		if !ok {
			t.Fatalf("%s: no move", p.ID)
		}
		clone := g.Clone()
		if _, err := Apply(clone, mv.SAN); err != nil {
			t.Fatalf("%s chose illegal %q: %v", p.ID, mv.SAN, err)
		}
	}
}

func TestRandomBlunderPolicy(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	policy := RandomBlunder(r)
	three := []RankedMove{{SAN: "a"}, {SAN: "b"}, {SAN: "c"}}

	if idx := policy(BotProfile{BlunderChance: 1}, three); idx != 2 {
		t.Fatalf("certain blunder picked %d", idx)
	}
	if idx := policy(BotProfile{BlunderChance: 0}, three); idx != 0 {
		t.Fatalf("zero chance picked %d", idx)
	}
	if idx := policy(BotProfile{BlunderChance: 1}, three[:2]); idx != 0 {
		t.Fatalf("two candidates must never blunder, picked %d", idx)
	}
}

func TestPresetsLadder(t *testing.T) {
	ps := Presets()
	if len(ps) != 7 {
		t.Fatalf("want 7 presets, got %d", len(ps))
	}
	if ps[0].Rating != 200 || ps[len(ps)-1].Rating != 3000 {
		t.Fatalf("ladder bounds %d..%d", ps[0].Rating, ps[len(ps)-1].Rating)
	}
	for i, p := range ps {
		if err := ValidateBotProfile(p); err != nil {
			t.Fatalf("preset %s invalid: %v", p.ID, err)
		}
		if i > 0 && p.Rating <= ps[i-1].Rating {
			t.Fatalf("ladder not ascending at %s", p.ID)
		}
	}
	if _, err := PresetByID("bot-9999"); !errors.Is(err, ErrUnknownBot) {
		t.Fatalf("expected ErrUnknownBot, got %v", err)
	}
}

func TestBotFromRating(t *testing.T) {
	b := BotFromRating("ann-vs-bot-x", "ann vs x bot", 1750)
	if b.Depth != 2 || b.BlunderChance != 0.1 || b.Rating != 1750 {
		t.Fatalf("unexpected derived bot %+v", b)
	}
	low := BotFromRating("x", "x", 50)
	if low.Depth != 1 || low.BlunderChance != 0.45 {
		t.Fatalf("low rating should use the weakest tier, got %+v", low)
	}
}

func TestThresholdsGrade(t *testing.T) {
	for _, th := range []Thresholds{LocalThresholds, EngineThresholds} {
		cases := []struct {
			delta int
			want  Verdict
		}{
			{0, VerdictBest},
			{th.Good, VerdictBest},
			{th.Good + 1, VerdictGood},
			{th.Inaccuracy, VerdictGood},
			{th.Inaccuracy + 1, VerdictInaccuracy},
		}
		for _, c := range cases {
			if got := th.Grade(c.delta); got != c.want {
				t.Fatalf("%+v delta %d: got %s want %s", th, c.delta, got, c.want)
			}
		}
	}
}

func TestFindTargets(t *testing.T) {
	g := playAll(t, "e4", "d5")
	white := FindTargets(g, nchess.White)
	if len(white) == 0 || white[0].Square != "d5" || white[0].Piece != "pawn" {
		t.Fatalf("white targets %+v", white)
	}
	black := FindTargets(g, nchess.Black)
	if len(black) == 0 || black[0].Square != "e4" {
		t.Fatalf("black targets %+v", black)
	}
}

func TestFindTargetsCountsPinnedAttackers(t *testing.T) {
	// the white knight on e4 is pinned to its king by the rook on e8
	g, err := LoadFEN("k3r3/8/5q2/8/4N3/8/8/4K3 b - - 0 1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	white := FindTargets(g, nchess.White)
	if len(white) == 0 || white[0].Square != "f6" || white[0].Piece != "queen" {
		t.Fatalf("white targets %+v", white)
	}
	black := FindTargets(g, nchess.Black)
	if len(black) != 1 || black[0].Square != "e4" {
		t.Fatalf("black targets %+v", black)
	}
}

func TestRepetitionEndsGame(t *testing.T) {
	g := playAll(t, "Nf3", "Nf6", "Ng1", "Ng8", "Nf3", "Nf6", "Ng1")
	if IsOver(g) {
		t.Fatal("game over before the third repetition")
	}
	if _, err := Apply(g, "Ng8"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !IsOver(g) {
		t.Fatal("threefold repetition should end the game")
	}
	if got := Evaluate(g); got != 0 {
		t.Fatalf("repetition score = %d, want 0", got)
	}
	if ranked := RankMoves(g, 2, 0); ranked != nil {
		t.Fatalf("expected no moves after repetition, got %d", len(ranked))
	}
}

func TestFiftyMoveRuleEndsGame(t *testing.T) {
	g, err := LoadFEN("k7/8/8/8/8/8/8/K6R w - - 100 80")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !IsOver(g) || Evaluate(g) != 0 {
		t.Fatalf("fifty-move position should be a finished draw")
	}
}

func TestFlagsAndApply(t *testing.T) {
	g := NewGame()
	rec, err := Apply(g, "e4")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rec.Flags != "b" || rec.From != "e2" || rec.To != "e4" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := Apply(g, "e4"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	rec, err = Apply(g, "d7d5")
	if err != nil || rec.SAN != "d5" {
		t.Fatalf("coordinate input: %+v %v", rec, err)
	}
	rec, err = Apply(g, "exd5")
	if err != nil || rec.Flags != "c" {
		t.Fatalf("capture: %+v %v", rec, err)
	}
}

func TestClassifyIdea(t *testing.T) {
	target := &Target{Square: "d5", Piece: "queen"}
	cases := []struct {
		name   string
		facts  MoveFacts
		target *Target
		want   Idea
	}{
		{"mate", MoveFacts{SAN: "Qxf7#", Flags: "c"}, nil, IdeaMate},
		{"check", MoveFacts{SAN: "Bb5+"}, target, IdeaCheck},
		{"castle", MoveFacts{SAN: "O-O", Flags: "k"}, target, IdeaCastle},
		{"capture", MoveFacts{SAN: "exd5", Flags: "c"}, target, IdeaCapture},
		{"target", MoveFacts{SAN: "Nc3", Flags: "n"}, target, IdeaTarget},
		{"center", MoveFacts{SAN: "e4", Flags: "b", ToCenter: true}, nil, IdeaCenter},
		{"develop", MoveFacts{SAN: "Nf3", Flags: "n"}, nil, IdeaDevelop},
		{"generic", MoveFacts{SAN: "a3", Flags: "n"}, nil, IdeaGeneric},
	}
	for _, c := range cases {
		if got := ClassifyIdea(c.facts, c.target); got != c.want {
			t.Fatalf("%s: got %s want %s", c.name, got, c.want)
		}
	}
}
