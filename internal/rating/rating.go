// Package rating holds the Elo update and the move-log style statistics used
// for adaptive profiles.
package rating

import (
	"math"

	"github.com/park285/chess-coach/internal/domain"
)

const (
	DefaultK     = 32
	DefaultFloor = 100
	DefaultCap   = 3000

	// openingWindow is the game length below which opening speed saturates.
	openingWindow = 12
)

// Score values for the result of a game from the rated side.
const (
	Loss = 0.0
	Draw = 0.5
	Win  = 1.0
)

// ScoreFromResult maps "win"/"draw"/anything else to 1/0.5/0.
func ScoreFromResult(result string) float64 {
	switch result {
	case "win":
		return Win
	case "draw":
		return Draw
	default:
		return Loss
	}
}

// Expected is the Elo expected score of current against opponent.
func Expected(current, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-current)/400))
}

// UpdateElo applies one game to current. With noDecrease the result never
// drops below current; the final value is rounded and clamped to [floor, ceiling].
func UpdateElo(current int, opponent float64, score, k float64, floor, ceiling int, noDecrease bool) int {
	next := float64(current) + k*(score-Expected(float64(current), opponent))
	if noDecrease && next < float64(current) {
		next = float64(current)
	}
	return clamp(int(math.Round(next)), floor, ceiling)
}

// BuildStyleProfile summarises a move log. An empty log yields the zero
// profile.
func BuildStyleProfile(moves []domain.MoveRecord) domain.StyleProfile {
	if len(moves) == 0 {
		return domain.StyleProfile{}
	}
	var captures, checks int
	var loss float64
	for _, m := range moves {
		if m.IsCapture() {
			captures++
		}
		if m.GivesCheck() {
			checks++
		}
		loss += m.Loss
	}
	n := float64(len(moves))
	avgLoss := loss / n
	return domain.StyleProfile{
		Aggression:   min(100, roundInt(200*float64(captures)/n)),
		Tactical:     min(100, roundInt(250*float64(checks)/n)),
		Consistency:  clamp(100-roundInt(avgLoss/4), 1, 100),
		OpeningSpeed: min(100, roundInt(100*openingWindow/float64(max(len(moves), openingWindow)))),
	}
}

func roundInt(v float64) int { return int(math.Round(v)) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
