package narrative

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	DefaultURL       = "https://api.openai.com/v1/chat/completions"
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 600
)

type Config struct {
	URL       string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client asks a chat completion model for descriptive species facts. It never
// fails: every problem degrades to EmptyNarrativeFacts.
type Client struct {
	config Config
	http   *httpclient.Client
	logger ectologger.Logger
}

func NewClient(config Config, logger ectologger.Logger) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = config.Timeout

	return &Client{
		config: config,
		http:   httpclient.NewClient(clientCfg, logger),
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Enrich returns narrative facts for the species. A 429 from the model sets
// QuotaExceeded and leaves every other field at its default.
func (c *Client) Enrich(ctx context.Context, commonName, scientificName string) models.NarrativeFacts {
	facts := models.EmptyNarrativeFacts()
	logger := c.logger.WithContext(ctx)

	if c.config.APIKey == "" {
		logger.Info("no narrative API key configured; descriptive fields will be Unknown")
		metrics.RecordUpstream(metrics.UpstreamNarrative, metrics.OutcomeSkipped, 0)
		return facts
	}

	ctx, span := tracing.StartSpan(ctx, "NarrativeClient.Enrich")
	defer span.End()

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, c.config.URL, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	}, chatCompletionRequest{
		Model:     c.config.Model,
		Messages:  []chatMessage{{Role: "user", Content: Prompt(commonName, scientificName)}},
		MaxTokens: c.config.MaxTokens,
	})
	if err != nil {
		metrics.RecordUpstream(metrics.UpstreamNarrative, metrics.OutcomeError, time.Since(start).Seconds())
		tracing.RecordError(span, err)
		logger.WithError(err).Warn("narrative request failed")
		return facts
	}

	if httpclient.IsRateLimitStatus(resp.StatusCode) {
		metrics.RecordUpstream(metrics.UpstreamNarrative, metrics.OutcomeRateLimited, time.Since(start).Seconds())
		logger.Warn("narrative API quota exceeded")
		facts.QuotaExceeded = true
		return facts
	}
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		metrics.RecordUpstream(metrics.UpstreamNarrative, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithFields(map[string]any{
			"status_code": resp.StatusCode,
			"body":        snippet(string(resp.Body)),
		}).Warn("narrative API returned a non-success status")
		return facts
	}

	var completion chatCompletionResponse
	if err := resp.DecodeJSON(&completion); err != nil || len(completion.Choices) == 0 {
		metrics.RecordUpstream(metrics.UpstreamNarrative, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithError(err).Warn("narrative API returned an unreadable completion")
		return facts
	}

	content := completion.Choices[0].Message.Content
	payload, ok := ExtractJSON(content)
	if !ok {
		metrics.RecordUpstream(metrics.UpstreamNarrative, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithField("content", snippet(content)).Warn("could not parse JSON from narrative response")
		return facts
	}

	metrics.RecordUpstream(metrics.UpstreamNarrative, metrics.OutcomeSuccess, time.Since(start).Seconds())
	return FactsFromPayload(payload)
}

// Prompt is the instruction sent to the model.
func Prompt(commonName, scientificName string) string {
	species := commonName
	if species == "" {
		species = scientificName
	}
	if species == "" {
		species = models.Unknown
	}
	sci := scientificName
	if sci == "" {
		sci = commonName
	}

	return fmt.Sprintf(`For species %q (scientific: %s), return ONLY a valid JSON object, no other text. `+
		`Required keys: "population" (string, short wild estimate, e.g. "~5000" or "Unknown"), `+
		`"habitat" (string, short habitat), `+
		`"trend" (exactly one of: Increasing, Stable, Decreasing, Unknown), `+
		`"threats" (array of 1-5 short strings), `+
		`"description" (string, 1-2 sentences about the animal), `+
		`"threat_score" (integer 0-100, conservation risk: 0-20 low, 21-40 moderate, 41-70 high, 71-100 critical). `+
		`Example: {"population": "~5000", "habitat": "Tropical forest", "trend": "Decreasing", `+
		`"threats": ["Habitat loss", "Poaching"], "description": "A large cat native to Asia.", "threat_score": 65}`,
		species, sci)
}

func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
