package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	DefaultURL = "https://apiv3.iucnredlist.org/api/v3"

	// MaxThreats caps the threats lookup and the per-species threat list.
	MaxThreats = 15
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client looks species up in the conservation status registry. Every failure
// is reported as absent.
type Client struct {
	config    Config
	http      *httpclient.Client
	evaluator *expressions.Evaluator
	logger    ectologger.Logger
}

func NewClient(config Config, evaluator *expressions.Evaluator, logger ectologger.Logger) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	config.URL = strings.TrimRight(config.URL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = config.Timeout

	return &Client{
		config:    config,
		http:      httpclient.NewClient(clientCfg, logger),
		evaluator: evaluator,
		logger:    logger,
	}
}

// Lookup returns the registry facts for scientificName, trying the full name
// then genus and species only.
func (c *Client) Lookup(ctx context.Context, scientificName string) (models.ConservationFacts, bool) {
	ctx, span := tracing.StartSpan(ctx, "RegistryClient.Lookup")
	defer span.End()

	for _, name := range candidateNames(scientificName) {
		body, ok := c.get(ctx, "/species/"+url.PathEscape(name))
		if !ok {
			continue
		}
		result, ok := c.evaluator.FirstObject(body, "result[0]")
		if !ok {
			continue
		}
		facts := c.factsFromResult(result)
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"sci":      name,
			"category": facts.CategoryCode,
		}).Debug("registry lookup matched")
		return facts, true
	}
	return models.ConservationFacts{}, false
}

// Threats returns up to MaxThreats threat titles, falling back to codes.
func (c *Client) Threats(ctx context.Context, scientificName string) []string {
	ctx, span := tracing.StartSpan(ctx, "RegistryClient.Threats")
	defer span.End()

	threats := c.listLookup(ctx, "/species/threats/", scientificName, "title", "code")
	if len(threats) > MaxThreats {
		threats = threats[:MaxThreats]
	}
	return threats
}

// Habitats returns habitat names, falling back to codes.
func (c *Client) Habitats(ctx context.Context, scientificName string) []string {
	ctx, span := tracing.StartSpan(ctx, "RegistryClient.Habitats")
	defer span.End()

	return c.listLookup(ctx, "/species/habitats/", scientificName, "habitat", "code")
}

func (c *Client) listLookup(ctx context.Context, path, scientificName string, fields ...string) []string {
	for _, name := range candidateNames(scientificName) {
		body, ok := c.get(ctx, path+url.PathEscape(name))
		if !ok {
			continue
		}
		rows, ok := body["result"].([]any)
		if !ok {
			continue
		}

		out := make([]string, 0, len(rows))
		for _, row := range rows {
			if value, ok := c.evaluator.FirstString(row, fields...); ok {
				out = append(out, value)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{}
}

func (c *Client) factsFromResult(result map[string]any) models.ConservationFacts {
	category := NormalizeCategory(c.evaluator.FirstOf(result, "category", "code"))
	status, score := StatusForCategory(category)

	population, ok := c.evaluator.FirstString(result, "population", "population_trend", "rationale")
	if !ok {
		population = models.Unknown
	}

	trend := models.TrendUnknown
	if raw, ok := result["population_trend"].(string); ok {
		trend = models.ParseTrend(raw)
	}

	habitat := ""
	if raw, ok := result["habitat"].(string); ok {
		habitat = strings.TrimSpace(raw)
	}

	threats := c.evaluator.Strings("threats[].title", result)
	if threats == nil {
		threats = []string{}
	}
	if len(threats) > MaxThreats {
		threats = threats[:MaxThreats]
	}

	return models.ConservationFacts{
		CategoryCode:   category,
		Status:         status,
		RiskScore:      score,
		PopulationText: population,
		HabitatText:    habitat,
		ThreatTitles:   threats,
		Trend:          trend,
	}
}

func (c *Client) get(ctx context.Context, path string) (map[string]any, bool) {
	if c.config.APIKey == "" {
		return nil, false
	}

	logger := c.logger.WithContext(ctx).WithField("path", path)
	start := time.Now()

	resp, err := c.http.Get(ctx, fmt.Sprintf("%s%s?token=%s", c.config.URL, path, url.QueryEscape(c.config.APIKey)), nil)
	if err != nil {
		metrics.RecordUpstream(metrics.UpstreamRegistry, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithError(err).Warn("registry request failed")
		return nil, false
	}
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		metrics.RecordUpstream(metrics.UpstreamRegistry, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithField("status_code", resp.StatusCode).Warn("registry returned a non-success status")
		return nil, false
	}

	var body map[string]any
	if err := resp.DecodeJSON(&body); err != nil {
		metrics.RecordUpstream(metrics.UpstreamRegistry, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithError(err).Warn("registry returned an unreadable body")
		return nil, false
	}

	metrics.RecordUpstream(metrics.UpstreamRegistry, metrics.OutcomeSuccess, time.Since(start).Seconds())
	return body, true
}

// candidateNames is the full name followed by its genus and species, deduplicated.
func candidateNames(scientificName string) []string {
	full := strings.Join(strings.Fields(scientificName), " ")
	if full == "" {
		return nil
	}

	names := []string{full}
	parts := strings.Fields(full)
	if len(parts) > 2 {
		names = append(names, parts[0]+" "+parts[1])
	}
	return names
}
