package classifier

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Output names what the inference server returns for each class.
type Output string

const (
	OutputLogits        Output = "logits"
	OutputProbabilities Output = "probabilities"
)

type Config struct {
	// URL is the inference endpoint, speaking the KServe v2 JSON protocol.
	URL string
	// LabelsPath is a text file with one class label per line, in model output order.
	LabelsPath string
	Output     Output
	InputName  string
	Timeout    time.Duration
}

// Classifier runs images through a remote ImageNet model. Labels are loaded
// once on first use and shared read-only by all requests.
type Classifier struct {
	config Config
	client *httpclient.Client
	logger ectologger.Logger

	labelsOnce sync.Once
	labels     []string
	labelsErr  error
}

func NewClassifier(config Config, logger ectologger.Logger) *Classifier {
	if config.InputName == "" {
		config.InputName = "input"
	}
	if config.Output == "" {
		config.Output = OutputLogits
	}

	clientCfg := httpclient.DefaultConfig()
	if config.Timeout > 0 {
		clientCfg.Timeout = config.Timeout
	}

	return &Classifier{
		config: config,
		client: httpclient.NewClient(clientCfg, logger),
		logger: logger,
	}
}

type inferenceTensor struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float32 `json:"data"`
}

type inferenceRequest struct {
	Inputs []inferenceTensor `json:"inputs"`
}

type inferenceResponse struct {
	Outputs []struct {
		Name  string    `json:"name"`
		Shape []int     `json:"shape"`
		Data  []float64 `json:"data"`
	} `json:"outputs"`
}

// Classify returns the top-1 raw label and its confidence as a percentage.
func (c *Classifier) Classify(ctx context.Context, imageBytes []byte) (string, float64, error) {
	ctx, span := tracing.StartSpan(ctx, "Classifier.Classify")
	defer span.End()

	img, err := Decode(imageBytes)
	if err != nil {
		tracing.RecordError(span, err)
		return "", 0, err
	}

	labels, err := c.loadLabels()
	if err != nil {
		tracing.RecordError(span, err)
		return "", 0, err
	}

	if c.config.URL == "" {
		return "", 0, &ClassificationError{Reason: "model is unavailable"}
	}

	start := time.Now()
	resp, err := c.client.PostJSON(ctx, c.config.URL, nil, inferenceRequest{
		Inputs: []inferenceTensor{{
			Name:     c.config.InputName,
			Shape:    []int{1, 3, cropSize, cropSize},
			Datatype: "FP32",
			Data:     Preprocess(img),
		}},
	})
	if err != nil {
		metrics.RecordUpstream(metrics.UpstreamClassifier, metrics.OutcomeError, time.Since(start).Seconds())
		tracing.RecordError(span, err)
		return "", 0, &ClassificationError{Reason: "model is unavailable", Err: err}
	}
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		metrics.RecordUpstream(metrics.UpstreamClassifier, metrics.OutcomeError, time.Since(start).Seconds())
		return "", 0, &ClassificationError{Reason: fmt.Sprintf("model returned status %d", resp.StatusCode)}
	}

	var out inferenceResponse
	if err := resp.DecodeJSON(&out); err != nil || len(out.Outputs) == 0 {
		metrics.RecordUpstream(metrics.UpstreamClassifier, metrics.OutcomeError, time.Since(start).Seconds())
		return "", 0, &ClassificationError{Reason: "model returned an unreadable response", Err: err}
	}
	metrics.RecordUpstream(metrics.UpstreamClassifier, metrics.OutcomeSuccess, time.Since(start).Seconds())

	scores := out.Outputs[0].Data
	if len(scores) != len(labels) {
		return "", 0, &ClassificationError{Reason: fmt.Sprintf("model returned %d scores for %d labels", len(scores), len(labels))}
	}

	probs := scores
	if c.config.Output == OutputLogits {
		probs = Softmax(scores)
	}
	top := Argmax(probs)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"label":      labels[top],
		"confidence": probs[top] * 100,
	}).Debug("classified image")

	return labels[top], probs[top] * 100, nil
}

func (c *Classifier) loadLabels() ([]string, error) {
	c.labelsOnce.Do(func() {
		c.labels, c.labelsErr = readLabels(c.config.LabelsPath)
		if c.labelsErr != nil {
			c.logger.WithError(c.labelsErr).Errorf("failed to load classifier labels from %s", c.config.LabelsPath)
		}
	})
	if c.labelsErr != nil {
		return nil, &ClassificationError{Reason: "model is unavailable", Err: c.labelsErr}
	}
	return c.labels, nil
}

func readLabels(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("no labels file configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// Softmax converts logits to probabilities.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = math.Max(maxLogit, v)
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Argmax returns the index of the largest value, the first on ties.
func Argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
