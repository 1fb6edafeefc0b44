package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"decision-intel/backend/internal/intel"
)

// Narrative recommendation labels.
const (
	LabelAdopt        = "ADOPT"
	LabelCaution      = "CAUTION"
	LabelInsufficient = "INSUFFICIENT_EVIDENCE"
)

// Drafter turns an aggregate result into a short prose summary.
type Drafter interface {
	Enabled() bool
	Draft(ctx context.Context, result intel.AggregateResult) (Narrative, error)
}

// Config holds OpenAI configuration parameters.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Client implements the Drafter interface against the OpenAI API.
type Client struct {
	api         *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

var ErrDisabled = errors.New("ai drafter disabled")

// NewClient constructs a Client if the supplied configuration is valid.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrDisabled
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1-mini"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temp,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}

// Draft requests a narrative for the aggregate result.
func (c *Client) Draft(ctx context.Context, result intel.AggregateResult) (Narrative, error) {
	if !c.Enabled() {
		return Narrative{}, ErrDisabled
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(result)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Narrative{}, fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Narrative{}, errors.New("openai empty response")
	}

	content := normalizeJSONBlock(resp.Choices[0].Message.Content)
	if content == "" {
		return Narrative{}, errors.New("openai empty narrative")
	}

	var narrative Narrative
	if err := json.Unmarshal([]byte(content), &narrative); err != nil {
		return Narrative{}, fmt.Errorf("parse ai response: %w", err)
	}

	sanitizeNarrative(&narrative)
	if narrative.Summary == "" {
		return Narrative{}, errors.New("ai summary missing")
	}
	if narrative.Recommendation == "" {
		return Narrative{}, errors.New("ai recommendation missing")
	}
	return narrative, nil
}

const systemPrompt = "You are a decision analyst for a startup leadership team. Reply with a strict JSON object " +
	"containing keys summary, recommendation and caveats. summary is at most three sentences and must only use " +
	"the evidence supplied: the organization's own similar past decisions and the external failure corpus. Keep " +
	"the two sources distinct and never blend their numbers. recommendation must be one of ADOPT, CAUTION or " +
	"INSUFFICIENT_EVIDENCE. caveats is a short list of risks worth checking. Emit nothing outside the JSON object."

func buildUserPrompt(result intel.AggregateResult) string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Category: %s (%s)\n", result.Category, result.CategorySource)
	fmt.Fprintf(builder, "Evidence quality: %s\n", result.RecommendationQuality)

	internal := result.Internal
	switch {
	case internal.Status != intel.SourceOK || internal.Recommendation == nil:
		fmt.Fprintf(builder, "Organization history: %s\n", internal.Status)
	case internal.Recommendation.HasRecommendation:
		rec := internal.Recommendation
		fmt.Fprintf(builder, "Organization history: %d similar decisions, %d%% succeeded\n", rec.SimilarCount, rec.SuccessRate)
		fmt.Fprintf(builder, "Recommended option: %s (confidence %d%%)\n", rec.RecommendedOption.Name, rec.Confidence)
		if rec.NotRecommendedOption != nil {
			fmt.Fprintf(builder, "Option to avoid: %s (confidence %d%%)\n", rec.NotRecommendedOption.Name, rec.NotRecommendedOption.Confidence)
		}
		for _, reason := range rec.Reasoning {
			fmt.Fprintf(builder, "Reasoning: %s\n", reason)
		}
		for _, warning := range rec.Warnings {
			fmt.Fprintf(builder, "History warning: %s\n", warning)
		}
	default:
		fmt.Fprintf(builder, "Organization history: abstained (%s) over %d similar decisions\n",
			internal.Recommendation.Reason, internal.Recommendation.SimilarCount)
	}

	external := result.External
	if external.Status != intel.SourceOK {
		fmt.Fprintf(builder, "External corpus: %s\n", external.Status)
		return builder.String()
	}
	fmt.Fprintf(builder, "External corpus: %d failures analyzed\n", external.TotalAnalyzed)
	for _, failure := range external.FailurePatterns {
		fmt.Fprintf(builder, "Common failure: %s (%d)\n", failure.FailureReason, failure.Count)
	}
	for _, tpl := range external.Templates {
		fmt.Fprintf(builder, "Template: %s, %d%% success, cost %s\n", tpl.Name, tpl.SuccessRate, tpl.CostEstimate)
		for _, warning := range tpl.Warnings {
			fmt.Fprintf(builder, "  Warning: %s\n", warning)
		}
	}
	return builder.String()
}

func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if strings.HasSuffix(trimmed, "```") {
			trimmed = trimmed[:len(trimmed)-3]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

func sanitizeNarrative(narrative *Narrative) {
	if narrative == nil {
		return
	}
	narrative.Summary = strings.TrimSpace(narrative.Summary)
	narrative.Recommendation = strings.ToUpper(strings.TrimSpace(narrative.Recommendation))
	switch narrative.Recommendation {
	case LabelAdopt, LabelCaution, LabelInsufficient:
	default:
		narrative.Recommendation = ""
	}
	caveats := narrative.Caveats[:0]
	for _, caveat := range narrative.Caveats {
		if trimmed := strings.TrimSpace(caveat); trimmed != "" {
			caveats = append(caveats, trimmed)
		}
	}
	narrative.Caveats = caveats
}
