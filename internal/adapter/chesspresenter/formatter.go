package chesspresenter

import (
	"fmt"
	"strings"

	"github.com/park285/chess-coach/pkg/chessdto"
)

const (
	historyTail   = 10
	verdictIcon   = "♞"
	noTargetLabel = "-"
)

// Formatter renders DTOs as plain-text blocks for terminals and logs.
type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

func (f *Formatter) Bots(resp *chessdto.BotsResponse) string {
	if resp == nil {
		return "no bots"
	}
	var sb strings.Builder
	sb.WriteString("♜ Preset bots\n")
	for _, b := range resp.Preset {
		sb.WriteString(fmt.Sprintf("• %-10s %-18s %4d  depth %d  blunder %.0f%%\n", b.ID, b.Name, b.Rating, b.Depth, b.BlunderChance*100))
	}
	if len(resp.Dynamic) == 0 {
		sb.WriteString("♜ Adaptive bots: none")
		return sb.String()
	}
	sb.WriteString("♜ Adaptive bots\n")
	for i, p := range resp.Dynamic {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("• %s (%d, %d games)", p.Name, p.Rating, p.Games))
	}
	return sb.String()
}

func (f *Formatter) Analysis(a *chessdto.Analysis) string {
	if a == nil {
		return "no analysis"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s (%s)", verdictIcon, strings.ToUpper(a.Verdict), a.Source))
	if a.Verdict != "illegal" {
		sb.WriteString(fmt.Sprintf("  Δ %d cp", a.ScoreDelta))
	}
	sb.WriteString("\n")
	sb.WriteString(a.Message)
	sb.WriteString("\n")
	if len(a.Alternatives) > 0 {
		alts := make([]string, 0, len(a.Alternatives))
		for _, m := range a.Alternatives {
			alts = append(alts, fmt.Sprintf("%s (%s)", m.SAN, formatScore(m.Score)))
		}
		sb.WriteString("• Better: " + strings.Join(alts, ", ") + "\n")
	}
	target := noTargetLabel
	if t := a.PrimaryTarget; t != nil {
		target = fmt.Sprintf("%s on %s", t.Piece, t.Square)
	}
	sb.WriteString("• Target: " + target + "\n")
	sb.WriteString("• Idea: " + a.StrategicIdea)
	return sb.String()
}

func (f *Formatter) Room(st chessdto.RoomState) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("♟️ Room %s [%s]", st.RoomID, st.Mode))
	if st.Bot != nil {
		sb.WriteString(fmt.Sprintf(" vs %s (%d)", st.Bot.Name, st.Bot.Rating))
	}
	sb.WriteString("\n")
	names := make([]string, 0, len(st.Players))
	for _, p := range st.Players {
		names = append(names, p.Name)
	}
	sb.WriteString("• Players: " + strings.Join(names, ", ") + "\n")
	if st.Opening != nil {
		sb.WriteString(fmt.Sprintf("• Opening: %s %s\n", st.Opening.Code, st.Opening.Name))
	}
	sb.WriteString("• Moves: " + formatHistory(st.History) + "\n")
	switch {
	case st.GameOver:
		sb.WriteString("• Game over")
	case st.Turn == "w":
		sb.WriteString("• White to move")
	default:
		sb.WriteString("• Black to move")
	}
	return sb.String()
}

func (f *Formatter) Profile(id string, p chessdto.RatingProfile) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("♞ %s [%s]\n", p.Name, id))
	sb.WriteString(fmt.Sprintf("• Rating: %d after %d games\n", p.Rating, p.Games))
	sb.WriteString(fmt.Sprintf("• Style: aggression %d, tactical %d, consistency %d, opening speed %d",
		p.Style.Aggression, p.Style.Tactical, p.Style.Consistency, p.Style.OpeningSpeed))
	return sb.String()
}

// formatHistory numbers the last moves the way a score sheet does.
func formatHistory(list []chessdto.HistoryEntry) string {
	if len(list) == 0 {
		return "(none)"
	}
	start := 0
	if len(list) > historyTail {
		start = len(list) - historyTail
		if start%2 == 1 {
			start--
		}
	}
	var parts []string
	if start > 0 {
		parts = append(parts, "…")
	}
	for i := start; i < len(list); i++ {
		if i%2 == 0 {
			parts = append(parts, fmt.Sprintf("%d.%s", i/2+1, list[i].SAN))
			continue
		}
		parts = append(parts, list[i].SAN)
	}
	return strings.Join(parts, " ")
}

func formatScore(cp int) string {
	if cp >= 90000 || cp <= -90000 {
		return "mate"
	}
	return fmt.Sprintf("%+.2f", float64(cp)/100)
}
