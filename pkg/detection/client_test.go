package detection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/expressions"
)

func newTestClient(url, key string, timeout time.Duration) *Client {
	return NewClient(Config{URL: url, APIKey: key, Timeout: timeout}, expressions.NewEvaluator(),
		ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestClient_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, header, err := r.FormFile("image")
		if assert.NoError(t, err) {
			assert.Equal(t, "image.png", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detections":[{"common_name":"snow leopard","scientific_name":"Panthera uncia","confidence":0.91}]}`))
	}))
	defer server.Close()

	candidate, ok := newTestClient(server.URL, "secret", time.Second).Detect(context.Background(), []byte("img"), "image/png")
	require.True(t, ok)
	assert.Equal(t, "Snow Leopard", candidate.CommonName)
	assert.Equal(t, "Panthera uncia", candidate.ScientificName)
	assert.Equal(t, 91.0, candidate.ConfidencePercent)
}

func TestClient_Detect_NotConfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "", time.Second)
	assert.False(t, client.Enabled())

	_, ok := client.Detect(context.Background(), []byte("img"), "image/jpeg")
	assert.False(t, ok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestClient_Detect_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"not json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) }},
		{"empty", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"detections":[]}`)) }},
		{"slow", func(w http.ResponseWriter, r *http.Request) { time.Sleep(200 * time.Millisecond) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, ok := newTestClient(server.URL, "secret", 50*time.Millisecond).Detect(context.Background(), []byte("img"), "image/jpeg")
			assert.False(t, ok)
		})
	}
}
