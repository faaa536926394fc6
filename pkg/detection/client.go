package detection

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const DefaultURL = "https://www.animaldetect.com/api/v1/detect"

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client calls the optional external species detection service.
type Client struct {
	config Config
	http   *httpclient.Client
	parser *Parser
	logger ectologger.Logger
}

func NewClient(config Config, evaluator *expressions.Evaluator, logger ectologger.Logger) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = config.Timeout

	return &Client{
		config: config,
		http:   httpclient.NewClient(clientCfg, logger),
		parser: NewParser(evaluator),
		logger: logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.config.APIKey != ""
}

// Detect returns false when the service is not configured, fails, or finds nothing.
func (c *Client) Detect(ctx context.Context, image []byte, contentType string) (models.Candidate, bool) {
	if !c.Enabled() {
		return models.Candidate{}, false
	}

	ctx, span := tracing.StartSpan(ctx, "DetectionClient.Detect")
	defer span.End()

	logger := c.logger.WithContext(ctx)
	start := time.Now()

	resp, err := c.http.PostMultipart(ctx, c.config.URL, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	}, httpclient.File{
		Field:       "image",
		Filename:    "image" + extension(contentType),
		ContentType: contentType,
		Data:        image,
	})
	if err != nil {
		metrics.RecordUpstream(metrics.UpstreamDetector, metrics.OutcomeError, time.Since(start).Seconds())
		tracing.RecordError(span, err)
		logger.WithError(err).Warn("species detection request failed")
		return models.Candidate{}, false
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		metrics.RecordUpstream(metrics.UpstreamDetector, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithField("status_code", resp.StatusCode).Warn("species detection returned a non-success status")
		return models.Candidate{}, false
	}

	var body any
	if err := resp.DecodeJSON(&body); err != nil {
		metrics.RecordUpstream(metrics.UpstreamDetector, metrics.OutcomeError, time.Since(start).Seconds())
		logger.WithError(err).Warn("species detection returned an unreadable body")
		return models.Candidate{}, false
	}

	candidate, ok := c.parser.Parse(body)
	if !ok {
		metrics.RecordUpstream(metrics.UpstreamDetector, metrics.OutcomeAbsent, time.Since(start).Seconds())
		logger.Debug("species detection found nothing")
		return models.Candidate{}, false
	}

	metrics.RecordUpstream(metrics.UpstreamDetector, metrics.OutcomeSuccess, time.Since(start).Seconds())
	logger.WithFields(map[string]any{
		"name":       candidate.CommonName,
		"sci":        candidate.ScientificName,
		"confidence": candidate.ConfidencePercent,
	}).Debug("species detection matched")
	return candidate, true
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
