package domain

import (
	"strings"
	"time"
)

// Game modes as they appear on the wire and in stored profiles.
const (
	GameTypePvP = "pvp"
	GameTypeBot = "bot"
)

// NormalizeGameType maps a mode label onto GameTypeBot or GameTypePvP.
// "vs-bot" and "head-to-head" are accepted as aliases; anything unknown is
// head-to-head.
func NormalizeGameType(gameType string) string {
	switch strings.ToLower(strings.TrimSpace(gameType)) {
	case GameTypeBot, "vs-bot":
		return GameTypeBot
	default:
		return GameTypePvP
	}
}

// StyleProfile summarises how a side played one game. Every field is in [0,100].
type StyleProfile struct {
	Aggression   int `json:"aggression" bson:"aggression"`
	Tactical     int `json:"tactical" bson:"tactical"`
	Consistency  int `json:"consistency" bson:"consistency"`
	OpeningSpeed int `json:"openingSpeed" bson:"opening_speed"`
}

type RatingProfile struct {
	ID       string       `json:"id" bson:"_id"`
	Name     string       `json:"name" bson:"name"`
	Rating   int          `json:"rating" bson:"rating"`
	Games    int          `json:"games" bson:"games"`
	Style    StyleProfile `json:"style" bson:"style"`
	AvgLossA float64      `json:"avgLossA" bson:"avg_loss_a"`
	AvgLossB float64      `json:"avgLossB" bson:"avg_loss_b"`
	GameType string       `json:"gameType" bson:"game_type"`

	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Clone returns a copy safe to hand out of a store.
func (p *RatingProfile) Clone() *RatingProfile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
