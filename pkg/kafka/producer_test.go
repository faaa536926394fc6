package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestParseConfig(t *testing.T) {
	cfg := ParseConfig(" kafka-1:9092, kafka-2:9092 ,,", "fern.sightings")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, "fern.sightings", cfg.Topic)

	assert.Empty(t, ParseConfig("", "t").Brokers)
}

func TestSightingPublisher_PublishSightingCreated(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewSightingPublisherWithWriter(writer, "fern.sightings", testLogger())

	sighting := models.Sighting{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Name:        "Snow Leopard",
		Sci:         "Panthera uncia",
		Status:      models.StatusVU,
		Lat:         27.98,
		Lng:         86.92,
		ThreatScore: 65,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, publisher.PublishSightingCreated(context.Background(), sighting))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, sighting.ID.String(), string(msg.Key))

	var event SightingEventMessage
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventSightingCreated, event.Type)
	assert.Equal(t, sighting.UserID.String(), event.UserID)
	assert.Equal(t, models.StatusVU, event.Status)
	assert.Equal(t, 65, event.ThreatScore)
	assert.True(t, sighting.CreatedAt.Equal(event.Timestamp))

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestSightingPublisher_WriteFailure(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	publisher := NewSightingPublisherWithWriter(writer, "fern.sightings", testLogger())

	err := publisher.PublishSightingCreated(context.Background(), models.Sighting{ID: uuid.New()})
	assert.EqualError(t, err, "leader not available")
}
