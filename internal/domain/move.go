package domain

// MoveRecord is one entry of a room's move log. Flags use the single-letter
// vocabulary browser chess clients expect: n normal, b double pawn push,
// e en passant, c capture, p promotion, k/q castling.
type MoveRecord struct {
	SAN   string  `json:"san"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Flags string  `json:"flags"`
	By    string  `json:"by,omitempty"`
	Loss  float64 `json:"loss,omitempty"`
}

func (m MoveRecord) IsCapture() bool { return containsFlag(m.Flags, 'c') || containsFlag(m.Flags, 'e') }

func (m MoveRecord) IsCastle() bool { return containsFlag(m.Flags, 'k') || containsFlag(m.Flags, 'q') }

// GivesCheck reports a check or mate suffix on the notated move.
func (m MoveRecord) GivesCheck() bool {
	for _, r := range m.SAN {
		if r == '+' || r == '#' {
			return true
		}
	}
	return false
}

func containsFlag(flags string, f byte) bool {
	for i := 0; i < len(flags); i++ {
		if flags[i] == f {
			return true
		}
	}
	return false
}
