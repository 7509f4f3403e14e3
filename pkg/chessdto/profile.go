package chessdto

import "time"

type StyleProfile struct {
	Aggression   int `json:"aggression"`
	Tactical     int `json:"tactical"`
	Consistency  int `json:"consistency"`
	OpeningSpeed int `json:"openingSpeed"`
}

type RatingProfile struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Rating    int          `json:"rating"`
	Games     int          `json:"games"`
	Style     StyleProfile `json:"style"`
	AvgLossA  float64      `json:"avgLossA"`
	AvgLossB  float64      `json:"avgLossB"`
	GameType  string       `json:"gameType"`
	UpdatedAt time.Time    `json:"updatedAt"`
	CreatedAt time.Time    `json:"createdAt"`
}

type BotProfile struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name"`
	Rating        int     `json:"rating"`
	Depth         int     `json:"depth"`
	BlunderChance float64 `json:"blunderChance"`
}

type BotsResponse struct {
	Preset  []BotProfile    `json:"preset"`
	Dynamic []RatingProfile `json:"dynamic"`
}

// UpdateProfileRequest reports a finished game. Optional numbers are
// pointers so that an absent field takes the server default.
type UpdateProfileRequest struct {
	PlayerA         string         `json:"playerA"`
	PlayerB         string         `json:"playerB"`
	GameType        string         `json:"gameType,omitempty"`
	BotRating       *float64       `json:"botRating,omitempty"`
	Moves           []HistoryEntry `json:"moves"`
	ResultA         string         `json:"resultA"`
	ResultB         string         `json:"resultB"`
	AvgLossA        *float64       `json:"avgLossA,omitempty"`
	AvgLossB        *float64       `json:"avgLossB,omitempty"`
	AdminCredential string         `json:"adminCredential,omitempty"`
}

type UpdateProfileResponse struct {
	ID      string        `json:"id"`
	Profile RatingProfile `json:"profile"`
}
