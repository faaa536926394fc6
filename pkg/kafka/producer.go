package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// EventSightingCreated is the type of the event published for every saved sighting.
const EventSightingCreated = "sighting.created"

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, topic string) Config {
	brokerList := []string{}
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokerList = append(brokerList, broker)
		}
	}

	return Config{
		Brokers: brokerList,
		Topic:   topic,
	}
}

// MessageWriter is the subset of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SightingPublisher publishes sighting lifecycle events
type SightingPublisher struct {
	writer MessageWriter
	logger ectologger.Logger
	topic  string
}

// NewSightingPublisher creates a publisher writing to cfg.Topic
func NewSightingPublisher(cfg Config, logger ectologger.Logger) *SightingPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		// topics are auto-created in dev environments
		AllowAutoTopicCreation: true,
	}

	return NewSightingPublisherWithWriter(writer, cfg.Topic, logger)
}

// NewSightingPublisherWithWriter creates a publisher on an existing writer
func NewSightingPublisherWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *SightingPublisher {
	return &SightingPublisher{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// Close closes the producer
func (p *SightingPublisher) Close() error {
	return p.writer.Close()
}

// SightingEventMessage is the payload of a sighting.created event
type SightingEventMessage struct {
	Type        string        `json:"type"`
	SightingID  string        `json:"sighting_id"`
	UserID      string        `json:"user_id"`
	Name        string        `json:"name"`
	Sci         string        `json:"sci"`
	Status      models.Status `json:"status"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	ThreatScore int           `json:"threat_score"`
	Timestamp   time.Time     `json:"timestamp"`

	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// NewSightingEventMessage builds the event for a saved sighting
func NewSightingEventMessage(sighting models.Sighting) *SightingEventMessage {
	timestamp := sighting.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &SightingEventMessage{
		Type:        EventSightingCreated,
		SightingID:  sighting.ID.String(),
		UserID:      sighting.UserID.String(),
		Name:        sighting.Name,
		Sci:         sighting.Sci,
		Status:      sighting.Status,
		Lat:         sighting.Lat,
		Lng:         sighting.Lng,
		ThreatScore: sighting.ThreatScore,
		Timestamp:   timestamp.UTC(),
	}
}

// PublishSightingCreated publishes a sighting.created event keyed by sighting id
func (p *SightingPublisher) PublishSightingCreated(ctx context.Context, sighting models.Sighting) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.PublishSightingCreated")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("sighting_id", sighting.ID.String()),
	)

	msg := NewSightingEventMessage(sighting)
	msg.TraceID = tracing.GetTraceID(ctx)
	msg.SpanID = tracing.GetSpanID(ctx)

	data, err := json.Marshal(msg)
	if err != nil {
		tracing.RecordError(span, err)
		metrics.EventsPublishedTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("failed to marshal sighting event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "type", Value: []byte(msg.Type)},
		{Key: "user_id", Value: []byte(msg.UserID)},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.SightingID),
		Value:   data,
		Headers: headers,
	}); err != nil {
		tracing.RecordError(span, err)
		metrics.EventsPublishedTotal.WithLabelValues(metrics.OutcomeError).Inc()
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish to Kafka topic %s", p.topic)
		return err
	}

	metrics.EventsPublishedTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	p.logger.WithContext(ctx).Debugf("Published %s for sighting %s", msg.Type, msg.SightingID)
	return nil
}
