package credibility

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-verify/pkg/anthropic"
	"github.com/sells-group/research-verify/pkg/perplexity"
)

// ErrRaterUnavailable is returned by raters that are not configured.
var ErrRaterUnavailable = eris.New("credibility: rater unavailable")

// Rater sends a rating prompt to a language model and returns its raw reply.
type Rater interface {
	Rate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// NopRater is the rater used when no model is configured.
type NopRater struct{}

func (NopRater) Rate(context.Context, string) (string, error) { return "", ErrRaterUnavailable }
func (NopRater) Name() string                                   { return "none" }

const raterMaxTokens = 100

// AnthropicRater rates content with a Claude model.
type AnthropicRater struct {
	client anthropic.Client
	model  string
}

// NewAnthropicRater creates an AnthropicRater. An empty model selects
// anthropic.DefaultModel.
func NewAnthropicRater(client anthropic.Client, model string) *AnthropicRater {
	if model == "" {
		model = anthropic.DefaultModel
	}
	return &AnthropicRater{client: client, model: model}
}

func (r *AnthropicRater) Name() string { return "anthropic" }

func (r *AnthropicRater) Rate(ctx context.Context, prompt string) (string, error) {
	temp := 0.0
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       r.model,
		MaxTokens:   raterMaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "credibility: anthropic rate")
	}
	resp.Usage.LogCost(r.model, "credibility")
	return resp.Text(), nil
}

// PerplexityRater rates content with a Perplexity model.
type PerplexityRater struct {
	client perplexity.Client
}

// NewPerplexityRater creates a PerplexityRater.
func NewPerplexityRater(client perplexity.Client) *PerplexityRater {
	return &PerplexityRater{client: client}
}

func (r *PerplexityRater) Name() string { return "perplexity" }

func (r *PerplexityRater) Rate(ctx context.Context, prompt string) (string, error) {
	maxTokens := raterMaxTokens
	temp := 0.0
	resp, err := r.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages:    []perplexity.Message{{Role: "user", Content: prompt}},
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "credibility: perplexity rate")
	}
	return resp.Text(), nil
}

var (
	_ Rater = NopRater{}
	_ Rater = (*AnthropicRater)(nil)
	_ Rater = (*PerplexityRater)(nil)
)
