package chess

import (
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

type Verdict string

const (
	VerdictBest       Verdict = "best"
	VerdictGood       Verdict = "good"
	VerdictInaccuracy Verdict = "inaccuracy"
	VerdictIllegal    Verdict = "illegal"
)

const (
	SourceEngine      = "engine"
	SourceLightweight = "lightweight"
)

// Thresholds bound the score delta for each verdict. Good must not exceed
// Inaccuracy.
type Thresholds struct {
	Good       int
	Inaccuracy int
}

var (
	LocalThresholds  = Thresholds{Good: 90, Inaccuracy: 220}
	EngineThresholds = Thresholds{Good: 70, Inaccuracy: 180}
)

// Grade maps a score delta onto a verdict.
func (t Thresholds) Grade(delta int) Verdict {
	switch {
	case delta > t.Inaccuracy:
		return VerdictInaccuracy
	case delta > t.Good:
		return VerdictGood
	default:
		return VerdictBest
	}
}

type Target struct {
	Square string `json:"square"`
	Piece  string `json:"piece"`
	Value  int    `json:"value"`
}

type AnalysisResult struct {
	Verdict       Verdict      `json:"verdict"`
	ScoreDelta    int          `json:"scoreDelta"`
	Message       string       `json:"message"`
	Alternatives  []RankedMove `json:"alternatives"`
	PrimaryTarget *Target      `json:"primaryTarget"`
	TargetSummary string       `json:"targetSummary"`
	StrategicIdea string       `json:"strategicIdea"`
	Source        string       `json:"source"`
}

// Idea names the strategic theme of a move, highest priority first.
type Idea string

const (
	IdeaMate    Idea = "mate"
	IdeaCheck   Idea = "check"
	IdeaCastle  Idea = "castle"
	IdeaCapture Idea = "capture"
	IdeaTarget  Idea = "target"
	IdeaCenter  Idea = "center"
	IdeaDevelop Idea = "develop"
	IdeaGeneric Idea = "generic"
)

var pieceNames = map[nchess.PieceType]string{
	nchess.Pawn:   "pawn",
	nchess.Knight: "knight",
	nchess.Bishop: "bishop",
	nchess.Rook:   "rook",
	nchess.Queen:  "queen",
	nchess.King:   "king",
}

func PieceName(pt nchess.PieceType) string {
	if n, ok := pieceNames[pt]; ok {
		return n
	}
	return "piece"
}

// FindTargets lists enemy pieces of attacker that the attacker hits in the
// current position of g, most valuable first.
func FindTargets(g *nchess.Game, attacker nchess.Color) []Target {
	pos := g.Position()
	board := pos.Board()
	hit := attackedSquares(pos, attacker)

	var targets []Target
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			sq := nchess.NewSquare(file, rank)
			piece := board.Piece(sq)
			if piece == nchess.NoPiece || piece.Color() == attacker {
				continue
			}
			if _, ok := hit[sq]; !ok {
				continue
			}
			targets = append(targets, Target{
				Square: sq.String(),
				Piece:  PieceName(piece.Type()),
				Value:  pieceValues[piece.Type()],
			})
		}
	}
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Value > targets[j].Value })
	return targets
}

type step struct{ df, dr int }

var (
	knightSteps = []step{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = []step{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays    = []step{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = []step{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// attackedSquares collects every square attacker's pieces hit, pinned pieces
// included. Pawns hit diagonally only.
func attackedSquares(pos *nchess.Position, attacker nchess.Color) map[nchess.Square]struct{} {
	hit := make(map[nchess.Square]struct{})
	board := pos.Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece || piece.Color() != attacker {
				continue
			}
			f, r := int(file), int(rank)
			switch piece.Type() {
			case nchess.Pawn:
				dr := 1
				if attacker == nchess.Black {
					dr = -1
				}
				leap(hit, f, r, []step{{-1, dr}, {1, dr}})
			case nchess.Knight:
				leap(hit, f, r, knightSteps)
			case nchess.King:
				leap(hit, f, r, kingSteps)
			case nchess.Bishop:
				slide(hit, board, f, r, bishopRays)
			case nchess.Rook:
				slide(hit, board, f, r, rookRays)
			case nchess.Queen:
				slide(hit, board, f, r, rookRays)
				slide(hit, board, f, r, bishopRays)
			}
		}
	}
	return hit
}

func onBoard(f, r int) bool { return f >= 0 && f < 8 && r >= 0 && r < 8 }

func leap(hit map[nchess.Square]struct{}, f, r int, steps []step) {
	for _, s := range steps {
		if onBoard(f+s.df, r+s.dr) {
			hit[nchess.NewSquare(nchess.File(f+s.df), nchess.Rank(r+s.dr))] = struct{}{}
		}
	}
}

// slide walks each ray up to and including the first occupied square.
func slide(hit map[nchess.Square]struct{}, board *nchess.Board, f, r int, rays []step) {
	for _, s := range rays {
		for nf, nr := f+s.df, r+s.dr; onBoard(nf, nr); nf, nr = nf+s.df, nr+s.dr {
			sq := nchess.NewSquare(nchess.File(nf), nchess.Rank(nr))
			hit[sq] = struct{}{}
			if board.Piece(sq) != nchess.NoPiece {
				break
			}
		}
	}
}

// ClassifyIdea returns the strategic theme of a move that was just played.
func ClassifyIdea(rec MoveFacts, target *Target) Idea {
	switch {
	case strings.Contains(rec.SAN, "#"):
		return IdeaMate
	case strings.Contains(rec.SAN, "+"):
		return IdeaCheck
	case strings.ContainsAny(rec.Flags, "kq"):
		return IdeaCastle
	case strings.ContainsAny(rec.Flags, "ce"):
		return IdeaCapture
	case target != nil:
		return IdeaTarget
	case rec.ToCenter:
		return IdeaCenter
	case rec.SAN != "" && strings.ContainsRune("NBRQK", rune(rec.SAN[0])):
		return IdeaDevelop
	default:
		return IdeaGeneric
	}
}

// MoveFacts is what ClassifyIdea needs to know about a move.
type MoveFacts struct {
	SAN      string
	Flags    string
	ToCenter bool
}

func FactsOf(pos *nchess.Position, mv *nchess.Move) MoveFacts {
	return MoveFacts{
		SAN:      nchess.AlgebraicNotation{}.Encode(pos, mv),
		Flags:    Flags(pos, mv),
		ToCenter: IsCenter(mv.S2()),
	}
}
