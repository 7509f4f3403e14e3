package rating

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-coach/internal/domain"
)

func TestUpdateEloNoDecreaseHoldsOnLoss(t *testing.T) {
	require.Equal(t, 1200, UpdateElo(1200, 1600, Loss, DefaultK, DefaultFloor, DefaultCap, true))
	require.Less(t, UpdateElo(1200, 1600, Loss, DefaultK, DefaultFloor, DefaultCap, false), 1200)
}

func TestUpdateEloEvenMatch(t *testing.T) {
	require.Equal(t, 1216, UpdateElo(1200, 1200, Win, DefaultK, DefaultFloor, DefaultCap, false))
	require.Equal(t, 1184, UpdateElo(1200, 1200, Loss, DefaultK, DefaultFloor, DefaultCap, false))
	require.Equal(t, 1200, UpdateElo(1200, 1200, Draw, DefaultK, DefaultFloor, DefaultCap, false))
}

func TestUpdateEloStaysInBounds(t *testing.T) {
	for _, current := range []int{100, 101, 800, 2999, 3000} {
		for _, opp := range []float64{0, 100, 1500, 3000, 5000} {
			for _, score := range []float64{Loss, Draw, Win} {
				for _, noDec := range []bool{false, true} {
					got := UpdateElo(current, opp, score, 64, DefaultFloor, DefaultCap, noDec)
					require.GreaterOrEqual(t, got, DefaultFloor)
					require.LessOrEqual(t, got, DefaultCap)
				}
			}
		}
	}
}

func TestScoreFromResult(t *testing.T) {
	require.Equal(t, Win, ScoreFromResult("win"))
	require.Equal(t, Draw, ScoreFromResult("draw"))
	require.Equal(t, Loss, ScoreFromResult("loss"))
	require.Equal(t, Loss, ScoreFromResult(""))
}

func TestBuildStyleProfileEmpty(t *testing.T) {
	require.Equal(t, domain.StyleProfile{}, BuildStyleProfile(nil))
}

func TestBuildStyleProfile(t *testing.T) {
	moves := []domain.MoveRecord{
		{SAN: "e4", Flags: "b", Loss: 0},
		{SAN: "d5", Flags: "b", Loss: 40},
		{SAN: "exd5", Flags: "c", Loss: 20},
		{SAN: "Qxd5", Flags: "c", Loss: 60},
		{SAN: "Nc3", Flags: "n", Loss: 0},
		{SAN: "Qe5+", Flags: "n", Loss: 120},
	}
	got := BuildStyleProfile(moves)
	// 2 captures and 1 check over 6 moves, average loss 40
	require.Equal(t, domain.StyleProfile{
		Aggression:   67,
		Tactical:     42,
		Consistency:  90,
		OpeningSpeed: 100,
	}, got)
}

func TestBuildStyleProfileBounds(t *testing.T) {
	long := make([]domain.MoveRecord, 48)
	for i := range long {
		long[i] = domain.MoveRecord{SAN: "Rxh8#", Flags: "c", Loss: 1000}
	}
	got := BuildStyleProfile(long)
	require.Equal(t, 100, got.Aggression)
	require.Equal(t, 100, got.Tactical)
	require.Equal(t, 1, got.Consistency)
	require.Equal(t, 25, got.OpeningSpeed)
}
