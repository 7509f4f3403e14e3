package chess

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const botCandidateCount = 6

// BotColor is the side a scripted opponent always plays.
const BotColor = nchess.Black

type BotProfile struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Rating        int     `json:"rating"`
	Depth         int     `json:"depth"`
	BlunderChance float64 `json:"blunderChance"`
}

var presetBots = []BotProfile{
	{ID: "bot-200", Name: "Pawn Rookie", Rating: 200, Depth: 1, BlunderChance: 0.45},
	{ID: "bot-700", Name: "Knight Cadet", Rating: 700, Depth: 1, BlunderChance: 0.25},
	{ID: "bot-1200", Name: "Bishop Learner", Rating: 1200, Depth: 2, BlunderChance: 0.15},
	{ID: "bot-1700", Name: "Rook Strategist", Rating: 1700, Depth: 2, BlunderChance: 0.1},
	{ID: "bot-2200", Name: "Queen Master", Rating: 2200, Depth: 3, BlunderChance: 0.06},
	{ID: "bot-2600", Name: "Grandmaster Ghost", Rating: 2600, Depth: 3, BlunderChance: 0.02},
	{ID: "bot-3000", Name: "Impossible 3000", Rating: 3000, Depth: 4, BlunderChance: 0},
}

var ErrUnknownBot = errors.New("chess: unknown bot preset")

// Presets returns the fixed bot ladder, weakest first.
func Presets() []BotProfile {
	return append([]BotProfile(nil), presetBots...)
}

func PresetByID(id string) (BotProfile, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, p := range presetBots {
		if p.ID == key {
			return p, nil
		}
	}
	return BotProfile{}, fmt.Errorf("%w: %s", ErrUnknownBot, id)
}

func ValidateBotProfile(p BotProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("bot name required")
	}
	if p.Depth < 0 || p.Depth > 6 {
		return fmt.Errorf("bot depth %d out of range 0-6", p.Depth)
	}
	if p.BlunderChance < 0 || p.BlunderChance > 1 {
		return fmt.Errorf("blunder chance %.2f out of range 0-1", p.BlunderChance)
	}
	return nil
}

// BlunderPolicy picks one entry from best-first candidates. It must return
// an index into candidates.
type BlunderPolicy func(p BotProfile, candidates []RankedMove) int

// NeverBlunder always plays the top candidate.
func NeverBlunder(BotProfile, []RankedMove) int { return 0 }

// RandomBlunder plays the worst candidate with the profile's blunder chance,
// provided at least three candidates exist. r is not safe for concurrent use,
// so callers sharing a policy across goroutines must serialize calls.
func RandomBlunder(r *rand.Rand) BlunderPolicy {
	return func(p BotProfile, candidates []RankedMove) int {
		if len(candidates) < 3 {
			return 0
		}
		if r.Float64() < p.BlunderChance {
			return len(candidates) - 1
		}
		return 0
	}
}

// SelectBotMove ranks the top candidates at the profile's depth and lets the
// policy choose. ok is false when the side to move has no legal move.
func SelectBotMove(g *nchess.Game, p BotProfile, policy BlunderPolicy) (RankedMove, bool) {
	candidates := RankMoves(g, p.Depth, botCandidateCount)
	if len(candidates) == 0 {
		return RankedMove{}, false
	}
	if policy == nil {
		policy = NeverBlunder
	}
	idx := policy(p, candidates)
	if idx < 0 || idx >= len(candidates) {
		idx = 0
	}
	return candidates[idx], true
}

// BotFromRating derives a bot for a stored adaptive profile: it borrows the
// search settings of the strongest preset not rated above rating.
func BotFromRating(id, name string, rating int) BotProfile {
	tier := presetBots[0]
	for _, p := range presetBots {
		if p.Rating <= rating {
			tier = p
		}
	}
	tier.ID = id
	tier.Name = name
	tier.Rating = rating
	return tier
}
