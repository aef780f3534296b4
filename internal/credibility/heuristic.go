package credibility

import "strings"

// RedFlags are sensationalist phrases that lower the heuristic score.
var RedFlags = []string{
	"miracle cure",
	"doctors hate",
	"one weird trick",
	"you won't believe",
	"secret they don't want you to know",
	"shocking discovery",
	"guaranteed",
	"100% proven",
	"conspiracy",
	"mainstream media won't tell you",
}

const (
	redFlagPenalty = 0.15
	heuristicFloor = 0.1
	heuristicCeil  = 1.0
)

// Heuristic scores text in [0.1, 1.0]: each distinct red flag present,
// case-insensitively, costs 0.15.
func Heuristic(text string) float64 {
	return clamp(1-redFlagPenalty*float64(RedFlagCount(text)), heuristicFloor, heuristicCeil)
}

// RedFlagCount returns how many distinct red flags appear in text.
func RedFlagCount(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, flag := range RedFlags {
		if strings.Contains(lower, flag) {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
