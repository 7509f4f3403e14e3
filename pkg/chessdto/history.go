package chessdto

// HistoryEntry is one move of a room log. Flags use the letters n b e c p k q.
type HistoryEntry struct {
	SAN   string  `json:"san"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Flags string  `json:"flags"`
	By    string  `json:"by,omitempty"`
	Loss  float64 `json:"loss,omitempty"`
}
