package credibility

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-verify/internal/model"
)

// fakeRater returns canned replies and records prompts.
type fakeRater struct {
	reply   string
	err     error
	delay   time.Duration
	calls   atomic.Int32
	prompts []string
}

func (f *fakeRater) Name() string { return "fake" }

func (f *fakeRater) Rate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.prompts = append(f.prompts, prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestScorer_AIVerified(t *testing.T) {
	r := &fakeRater{reply: `Sure! {"score": 9, "reason": "well sourced"} Hope that helps.`}
	s := NewScorer(r, Options{})

	v := s.Score(context.Background(), "Zimbabwe is a landlocked country.", "Zimbabwe")

	assert.Equal(t, model.MethodAIVerified, v.Method)
	assert.Equal(t, "well sourced", v.Reason)
	assert.InDelta(t, 0.3*1.0+0.7*0.9, v.Score, 1e-9)
	require.Len(t, r.prompts, 1)
	assert.Contains(t, r.prompts[0], "Title: Zimbabwe")
	assert.Contains(t, r.prompts[0], `Return JSON ONLY: {"score": <number>, "reason": "<string>"}`)
}

func TestScorer_BlendsWithHeuristic(t *testing.T) {
	r := &fakeRater{reply: `{"score": 2, "reason": "clickbait"}`}
	s := NewScorer(r, Options{})

	v := s.Score(context.Background(), "One weird trick doctors hate!", "Trick")
	assert.Equal(t, model.MethodAIVerified, v.Method)
	assert.InDelta(t, 0.3*0.7+0.7*0.2, v.Score, 1e-9)
}

func TestScorer_Unavailable(t *testing.T) {
	s := NewScorer(nil, Options{})

	v := s.Score(context.Background(), "Shocking discovery", "x")
	assert.Equal(t, model.MethodHeuristic, v.Method)
	assert.Equal(t, ReasonUnavailable, v.Reason)
	assert.InDelta(t, 0.85, v.Score, 1e-9)
}

func TestScorer_UnavailableIsNotRetried(t *testing.T) {
	r := &fakeRater{err: ErrRaterUnavailable}
	s := NewScorer(r, Options{Attempts: 3})

	v := s.Score(context.Background(), "text", "t")
	assert.Equal(t, model.MethodHeuristic, v.Method)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestScorer_FallbackOnError(t *testing.T) {
	r := &fakeRater{err: errors.New("boom")}
	s := NewScorer(r, Options{})

	v := s.Score(context.Background(), "clean text", "t")
	assert.Equal(t, model.MethodHeuristicFallback, v.Method)
	assert.Equal(t, ReasonRateFailed, v.Reason)
	assert.InDelta(t, 1.0, v.Score, 1e-9)
}

func TestScorer_FallbackOnGarbage(t *testing.T) {
	for _, reply := range []string{"no json here", `{"score": "high"}`, `{broken`} {
		s := NewScorer(&fakeRater{reply: reply}, Options{})
		v := s.Score(context.Background(), "clean text", "t")
		assert.Equal(t, model.MethodHeuristicFallback, v.Method, reply)
		assert.Equal(t, ReasonParseFailed, v.Reason, reply)
		assert.InDelta(t, 1.0, v.Score, 1e-9)
	}
}

func TestScorer_Timeout(t *testing.T) {
	r := &fakeRater{reply: `{"score": 10}`, delay: time.Second}
	s := NewScorer(r, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	v := s.Score(context.Background(), "clean text", "t")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, model.MethodHeuristicFallback, v.Method)
	assert.Equal(t, ReasonTimedOut, v.Reason)
}

func TestScorer_RetriesUpToAttempts(t *testing.T) {
	r := &fakeRater{err: errors.New("temporary")}
	s := NewScorer(r, Options{Attempts: 2})

	v := s.Score(context.Background(), "clean", "t")
	assert.Equal(t, model.MethodHeuristicFallback, v.Method)
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantScore  float64
		wantReason string
		wantErr    bool
	}{
		{"plain", `{"score": 7.5, "reason": "ok"}`, 7.5, "ok", false},
		{"missing score defaults to 5", `{"reason": "meh"}`, 5, "meh", false},
		{"missing reason", `{"score": 4}`, 4, ReasonDefault, false},
		{"string score", `{"score": "8", "reason": "r"}`, 8, "r", false},
		{"clamped high", `{"score": 42}`, 10, ReasonDefault, false},
		{"clamped low", `{"score": -3}`, 0, ReasonDefault, false},
		{"multiline", "```json\n{\n  \"score\": 6,\n  \"reason\": \"x\"\n}\n```", 6, "x", false},
		{"no object", "score: 9", 0, "", true},
		{"bad score", `{"score": [1]}`, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reason, err := ParseRating(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestBuildPrompt_TruncatesByRunes(t *testing.T) {
	text := strings.Repeat("é", 600)
	p := BuildPrompt("T", text)
	assert.True(t, strings.HasSuffix(p, "Snippet: "+strings.Repeat("é", 500)))
	assert.True(t, strings.HasPrefix(p, "Analyze credibility (0-10)."))
}
