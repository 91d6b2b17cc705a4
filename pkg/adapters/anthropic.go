package adapters

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// defaultGenerateModel is used when a GenerateOptions.Model is not
// supplied by the caller.
const defaultGenerateModel = "claude-3-5-sonnet-latest"

// AnthropicTextGenerator is the concrete TextGenerator adapter over
// anthropic-sdk-go's Messages API. Anthropic's API has no embeddings endpoint,
// so Embed always falls back to the same deterministic local
// hashed-bag-of-tokens projection FakeTextGenerator uses -- the "used when
// no embedding model is configured" case is the only case here
// (SPEC_FULL.md §4.2).
type AnthropicTextGenerator struct {
	client   anthropic.Client
	policy   *resilience.Policy
	embedDim int
}

// NewAnthropicTextGenerator builds a TextGenerator against the Anthropic
// API. A nil policy creates a default-configured one scoped to the
// "anthropic" adapter name.
func NewAnthropicTextGenerator(apiKey string, policy *resilience.Policy) *AnthropicTextGenerator {
	if policy == nil {
		policy = resilience.NewPolicy("anthropic", resilience.DefaultBreakerConfig(), resilience.DefaultRetryConfig(), resilience.DefaultTimeout)
	}
	return &AnthropicTextGenerator{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		policy:   policy,
		embedDim: 32,
	}
}

// Embed returns a deterministic hashed bag-of-tokens projection; see the
// type doc comment for why this never calls the upstream API.
func (a *AnthropicTextGenerator) Embed(ctx context.Context, text string) ([]float64, error) {
	return HashedBagOfTokensEmbedding(text, a.embedDim), nil
}

// Generate drafts free-form text from prompt via the Messages API,
// guarded by the resilience policy.
func (a *AnthropicTextGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = defaultGenerateModel
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var out string
	err := a.policy.Execute(ctx, func(callCtx context.Context) error {
		resp, genErr := a.client.Messages.New(callCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if genErr != nil {
			return strandserr.New(strandserr.KindUpstreamUnavailable, "AnthropicTextGenerator.Generate", genErr)
		}
		out = extractText(resp)
		return nil
	})
	return out, err
}

func extractText(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if text := block.Text; text != "" {
			b.WriteString(text)
		}
	}
	return b.String()
}
