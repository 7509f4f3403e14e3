package chessdto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MoveInput accepts either notated text ("Nf3", "e2e4") or an object
// {"from":"e7","to":"e8","promotion":"q"}.
type MoveInput struct {
	Text      string
	From      string
	To        string
	Promotion string
}

func (m *MoveInput) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		*m = MoveInput{Text: text}
		return nil
	}
	var obj struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Promotion string `json:"promotion"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("move must be a string or {from,to}: %w", err)
	}
	*m = MoveInput{From: obj.From, To: obj.To, Promotion: obj.Promotion}
	return nil
}

func (m MoveInput) MarshalJSON() ([]byte, error) {
	if m.Text != "" || (m.From == "" && m.To == "") {
		return json.Marshal(m.Text)
	}
	return json.Marshal(struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Promotion string `json:"promotion,omitempty"`
	}{m.From, m.To, m.Promotion})
}

// String returns the move as notated text, turning the object form into
// coordinate notation.
func (m MoveInput) String() string {
	if m.Text != "" {
		return strings.TrimSpace(m.Text)
	}
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}

type RankedMove struct {
	SAN   string `json:"san"`
	UCI   string `json:"uci"`
	From  string `json:"from"`
	To    string `json:"to"`
	Flags string `json:"flags"`
	Score int    `json:"score"`
}

type Target struct {
	Square string `json:"square"`
	Piece  string `json:"piece"`
	Value  int    `json:"value"`
}

type AnalyzeMoveRequest struct {
	FEN string `json:"fen"`
	SAN string `json:"san"`
}

// Analysis is the verdict on one played move.
type Analysis struct {
	Verdict       string       `json:"verdict"`
	ScoreDelta    int          `json:"scoreDelta"`
	Message       string       `json:"message"`
	Alternatives  []RankedMove `json:"alternatives"`
	PrimaryTarget *Target      `json:"primaryTarget"`
	TargetSummary string       `json:"targetSummary"`
	StrategicIdea string       `json:"strategicIdea"`
	Source        string       `json:"source"`
}
