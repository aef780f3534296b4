package credibility

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"clean", "Zimbabwe gained independence in 1980.", 1.0},
		{"empty", "", 1.0},
		{"one flag", "A miracle cure for everything.", 0.85},
		{"case insensitive", "DOCTORS HATE this.", 0.85},
		{"repeat counts once", "guaranteed guaranteed guaranteed", 0.85},
		{"two flags", "Shocking discovery! Guaranteed results.", 0.7},
		{"floor", strings.Join(RedFlags, " "), 0.1},
		{"six flags", "miracle cure, doctors hate, one weird trick, you won't believe, shocking discovery, conspiracy", 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Heuristic(tt.text), 1e-9)
		})
	}
}

func TestHeuristic_Bounds(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "x", strings.Repeat(strings.Join(RedFlags, " "), 3)} {
		h := Heuristic(text)
		assert.GreaterOrEqual(t, h, 0.1)
		assert.LessOrEqual(t, h, 1.0)
	}
}

func TestRedFlagCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, RedFlagCount("plain prose"))
	assert.Equal(t, 2, RedFlagCount("100% PROVEN conspiracy"))
	assert.Equal(t, len(RedFlags), RedFlagCount(strings.Join(RedFlags, "|")))
}
