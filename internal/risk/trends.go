package risk

// TrendSummary aggregates the levels of past turns.
type TrendSummary struct {
	Total         int           `json:"total"`
	Counts        map[Level]int `json:"counts"`
	ElevatedShare float64       `json:"elevated_share"`
	Highest       Level         `json:"highest"`
}

// Trends summarises a slice of levels, oldest first. Unrecognised levels are
// counted under None.
func Trends(levels []Level) TrendSummary {
	summary := TrendSummary{
		Total:   len(levels),
		Counts:  make(map[Level]int, len(Levels)),
		Highest: None,
	}
	for _, l := range Levels {
		summary.Counts[l] = 0
	}

	elevated := 0
	for _, l := range levels {
		if rank(l) == 0 {
			l = None
		}
		summary.Counts[l]++
		if l.IsCrisis() {
			elevated++
		}
		if rank(l) > rank(summary.Highest) {
			summary.Highest = l
		}
	}
	if len(levels) > 0 {
		summary.ElevatedShare = float64(elevated) / float64(len(levels))
	}
	return summary
}
