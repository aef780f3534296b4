// Package credibility scores extracted text with a red-flag heuristic,
// optionally blended with a language model's rating.
package credibility

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-verify/internal/model"
	"github.com/sells-group/research-verify/internal/resilience"
)

// Blend weights for an AI-verified score.
const (
	HeuristicWeight = 0.3
	AIWeight        = 0.7
)

const (
	defaultRateTimeout = 15 * time.Second
	defaultAIScore     = 5.0
	promptSnippetRunes = 500
)

// Reasons reported on non-AI verifications.
const (
	ReasonUnavailable = "AI model unavailable"
	ReasonParseFailed = "AI parsing failed"
	ReasonTimedOut    = "AI rating timed out"
	ReasonRateFailed  = "AI rating failed"
	ReasonDefault     = "AI analysis"
)

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

var errUnparsable = eris.New("credibility: unparsable rating")

// Options configures a Scorer.
type Options struct {
	// Timeout bounds each rating call. Default 15s.
	Timeout time.Duration
	// Attempts is the total number of rating attempts. Default 1.
	Attempts int
}

// Scorer produces a content-level Verification for a page.
type Scorer struct {
	rater Rater
	opts  Options
}

// NewScorer creates a Scorer. A nil rater behaves like NopRater.
func NewScorer(rater Rater, opts Options) *Scorer {
	if rater == nil {
		rater = NopRater{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRateTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	return &Scorer{rater: rater, opts: opts}
}

// Score never fails: every rater problem degrades to the heuristic.
func (s *Scorer) Score(ctx context.Context, text, title string) model.Verification {
	heuristic := Heuristic(text)

	reply, err := resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts:    s.opts.Attempts,
		InitialBackoff: time.Second,
		AttemptTimeout: s.opts.Timeout,
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, ErrRaterUnavailable)
		},
		OnRetry: resilience.RetryLogger(s.rater.Name(), "rate"),
	}, func(ctx context.Context) (string, error) {
		return s.rater.Rate(ctx, BuildPrompt(title, text))
	})
	if err != nil {
		return s.fallback(heuristic, title, err)
	}

	aiScore, reason, err := ParseRating(reply)
	if err != nil {
		return s.fallback(heuristic, title, err)
	}

	return model.Verification{
		Score:  HeuristicWeight*heuristic + AIWeight*aiScore/10,
		Method: model.MethodAIVerified,
		Reason: reason,
	}
}

func (s *Scorer) fallback(heuristic float64, title string, err error) model.Verification {
	if errors.Is(err, ErrRaterUnavailable) {
		return model.Verification{Score: heuristic, Method: model.MethodHeuristic, Reason: ReasonUnavailable}
	}

	reason := ReasonRateFailed
	switch {
	case errors.Is(err, errUnparsable):
		reason = ReasonParseFailed
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimedOut
	}
	zap.L().Warn("credibility: rater fallback to heuristic",
		zap.String("rater", s.rater.Name()),
		zap.String("title", title),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return model.Verification{Score: heuristic, Method: model.MethodHeuristicFallback, Reason: reason}
}

// BuildPrompt renders the rating prompt for a page.
func BuildPrompt(title, text string) string {
	return "Analyze credibility (0-10). Return JSON ONLY: {\"score\": <number>, \"reason\": \"<string>\"}.\n" +
		"Title: " + title + "\n" +
		"Snippet: " + firstRunes(text, promptSnippetRunes)
}

// ParseRating extracts the score (clamped to [0,10]) and reason from the
// first {...} span of reply. A missing score counts as 5.
func ParseRating(reply string) (float64, string, error) {
	span := jsonObjectRe.FindString(reply)
	if span == "" {
		return 0, "", eris.Wrap(errUnparsable, "no json object in reply")
	}

	var raw struct {
		Score  json.RawMessage `json:"score"`
		Reason string          `json:"reason"`
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return 0, "", eris.Wrap(errUnparsable, err.Error())
	}

	score := defaultAIScore
	if len(raw.Score) > 0 && string(raw.Score) != "null" {
		v, err := parseScore(raw.Score)
		if err != nil {
			return 0, "", err
		}
		score = v
	}

	reason := strings.TrimSpace(raw.Reason)
	if reason == "" {
		reason = ReasonDefault
	}
	return clamp(score, 0, 10), reason, nil
}

// parseScore accepts a JSON number or a numeric string.
func parseScore(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, nil
		}
	}
	return 0, eris.Wrapf(errUnparsable, "score %s is not numeric", string(raw))
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
