// Package profile persists adaptive rating profiles keyed by the pair of
// participants and the game mode.
package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/obslog"
	"github.com/park285/chess-coach/internal/rating"
)

const (
	defaultAvgLoss       = 120
	defaultProfileRating = 800
	baseOpponentRating   = 1200
	maxOpponentBonus     = 200
)

var ErrNamesRequired = errors.New("player names required")

// SaveRequest is one finished game as reported by a client. Nil pointers take
// the documented defaults.
type SaveRequest struct {
	PlayerA   string
	PlayerB   string
	GameType  string
	BotRating *float64
	Moves     []domain.MoveRecord
	ResultA   string
	ResultB   string
	AvgLossA  *float64
	AvgLossB  *float64
}

type SaveResult struct {
	ID      string                `json:"id"`
	Profile *domain.RatingProfile `json:"profile"`
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}


func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// ProfileID derives the storage key: "a-vs-b" or "a-vs-bot-b".
func ProfileID(playerA, playerB, gameType string) string {
	a, b := normalizeName(playerA), normalizeName(playerB)
	if domain.NormalizeGameType(gameType) == domain.GameTypeBot {
		return a + "-vs-bot-" + b
	}
	return a + "-vs-" + b
}

func displayName(playerA, playerB, gameType string) string {
	a, b := strings.TrimSpace(playerA), strings.TrimSpace(playerB)
	if gameType == domain.GameTypeBot {
		return a + " vs " + b + " bot"
	}
	return a + " vs " + b
}

// opponentRating is the bot's rating for bot games; otherwise it is inferred
// from how accurately side A played.
func opponentRating(gameType string, botRating *float64, avgLossA float64) float64 {
	if gameType == domain.GameTypeBot && botRating != nil && !math.IsNaN(*botRating) && !math.IsInf(*botRating, 0) {
		return *botRating
	}
	return baseOpponentRating + math.Max(0, maxOpponentBonus-avgLossA/2)
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Save applies one finished game to the profile of the pair.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if strings.TrimSpace(req.PlayerA) == "" || strings.TrimSpace(req.PlayerB) == "" {
		return SaveResult{}, ErrNamesRequired
	}
	gameType := domain.NormalizeGameType(req.GameType)
	id := ProfileID(req.PlayerA, req.PlayerB, gameType)
	avgLossA := valueOr(req.AvgLossA, defaultAvgLoss)
	avgLossB := valueOr(req.AvgLossB, defaultAvgLoss)
	style := rating.BuildStyleProfile(req.Moves)
	score := rating.ScoreFromResult(req.ResultA)
	opponent := opponentRating(gameType, req.BotRating, avgLossA)

	saved, err := s.store.Update(ctx, id, func(cur *domain.RatingProfile) (*domain.RatingProfile, error) {
		now := s.now()
		if cur == nil {
			cur = &domain.RatingProfile{
				ID:        id,
				Name:      displayName(req.PlayerA, req.PlayerB, gameType),
				Rating:    defaultProfileRating,
				CreatedAt: now,
			}
		}
		cur.Rating = rating.UpdateElo(cur.Rating, opponent, score, rating.DefaultK, rating.DefaultFloor, rating.DefaultCap, true)
		cur.Games++
		cur.Style = style
		cur.AvgLossA = avgLossA
		cur.AvgLossB = avgLossB
		cur.GameType = gameType
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("save profile %s: %w", id, err)
	}
	obslog.L().Info("profile_saved",
		zap.String("profile_id", id),
		zap.String("game_type", gameType),
		zap.String("result_a", req.ResultA),
		zap.Int("rating", saved.Rating),
		zap.Int("games", saved.Games),
	)
	return SaveResult{ID: id, Profile: saved}, nil
}

// BotProfiles lists every stored profile of the vs-bot mode.
func (s *Service) BotProfiles(ctx context.Context) ([]*domain.RatingProfile, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.RatingProfile, 0, len(all))
	for _, p := range all {
		if p.GameType == domain.GameTypeBot {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns the stored profile or nil.
func (s *Service) Get(ctx context.Context, id string) (*domain.RatingProfile, error) {
	return s.store.Get(ctx, id)
}
