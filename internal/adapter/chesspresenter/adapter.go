package chesspresenter

import (
	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/pkg/chessdto"
)

func ToDTOHistory(list []domain.MoveRecord) []chessdto.HistoryEntry {
	out := make([]chessdto.HistoryEntry, 0, len(list))
	for _, m := range list {
		out = append(out, ToDTOMove(m))
	}
	return out
}

func ToDTOMove(m domain.MoveRecord) chessdto.HistoryEntry {
	return chessdto.HistoryEntry{
		SAN:   m.SAN,
		From:  m.From,
		To:    m.To,
		Flags: m.Flags,
		By:    m.By,
		Loss:  m.Loss,
	}
}

func FromDTOHistory(list []chessdto.HistoryEntry) []domain.MoveRecord {
	out := make([]domain.MoveRecord, 0, len(list))
	for _, m := range list {
		out = append(out, domain.MoveRecord{
			SAN:   m.SAN,
			From:  m.From,
			To:    m.To,
			Flags: m.Flags,
			By:    m.By,
			Loss:  m.Loss,
		})
	}
	return out
}

func ToDTOBot(p chess.BotProfile) chessdto.BotProfile {
	return chessdto.BotProfile{
		ID:            p.ID,
		Name:          p.Name,
		Rating:        p.Rating,
		Depth:         p.Depth,
		BlunderChance: p.BlunderChance,
	}
}

func ToDTOBots(list []chess.BotProfile) []chessdto.BotProfile {
	out := make([]chessdto.BotProfile, 0, len(list))
	for _, p := range list {
		out = append(out, ToDTOBot(p))
	}
	return out
}

func FromDTOBot(p chessdto.BotProfile) chess.BotProfile {
	return chess.BotProfile{
		ID:            p.ID,
		Name:          p.Name,
		Rating:        p.Rating,
		Depth:         p.Depth,
		BlunderChance: p.BlunderChance,
	}
}

func ToDTOProfile(p *domain.RatingProfile) chessdto.RatingProfile {
	if p == nil {
		return chessdto.RatingProfile{}
	}
	return chessdto.RatingProfile{
		ID:     p.ID,
		Name:   p.Name,
		Rating: p.Rating,
		Games:  p.Games,
		Style: chessdto.StyleProfile{
			Aggression:   p.Style.Aggression,
			Tactical:     p.Style.Tactical,
			Consistency:  p.Style.Consistency,
			OpeningSpeed: p.Style.OpeningSpeed,
		},
		AvgLossA:  p.AvgLossA,
		AvgLossB:  p.AvgLossB,
		GameType:  p.GameType,
		UpdatedAt: p.UpdatedAt,
		CreatedAt: p.CreatedAt,
	}
}

func ToDTOProfiles(list []*domain.RatingProfile) []chessdto.RatingProfile {
	out := make([]chessdto.RatingProfile, 0, len(list))
	for _, p := range list {
		out = append(out, ToDTOProfile(p))
	}
	return out
}

func ToDTOAnalysis(r chess.AnalysisResult) chessdto.Analysis {
	alts := make([]chessdto.RankedMove, 0, len(r.Alternatives))
	for _, m := range r.Alternatives {
		alts = append(alts, chessdto.RankedMove{
			SAN:   m.SAN,
			UCI:   m.UCI,
			From:  m.From,
			To:    m.To,
			Flags: m.Flags,
			Score: m.Score,
		})
	}
	var target *chessdto.Target
	if t := r.PrimaryTarget; t != nil {
		target = &chessdto.Target{Square: t.Square, Piece: t.Piece, Value: t.Value}
	}
	return chessdto.Analysis{
		Verdict:       string(r.Verdict),
		ScoreDelta:    r.ScoreDelta,
		Message:       r.Message,
		Alternatives:  alts,
		PrimaryTarget: target,
		TargetSummary: r.TargetSummary,
		StrategicIdea: r.StrategicIdea,
		Source:        r.Source,
	}
}
