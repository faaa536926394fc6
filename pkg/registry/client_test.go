package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
)

type registryFake struct {
	mu        sync.Mutex
	paths     []string
	responses map[string]string
}

func (f *registryFake) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("token"))
		f.mu.Lock()
		f.paths = append(f.paths, r.URL.Path)
		f.mu.Unlock()

		body, ok := f.responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func newRegistry(t *testing.T, responses map[string]string) (*Client, *registryFake) {
	fake := &registryFake{responses: responses}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client := NewClient(Config{URL: server.URL, APIKey: "key", Timeout: time.Second}, expressions.NewEvaluator(),
		ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	return client, fake
}

func TestClient_Lookup(t *testing.T) {
	client, _ := newRegistry(t, map[string]string{
		"/species/Carcharodon carcharias": `{"result":[{"category":"VU","population_trend":"Decreasing","habitat":"Coastal waters","threats":[{"title":"Fishing"},{"title":"Bycatch"}]}]}`,
	})

	facts, ok := client.Lookup(context.Background(), "Carcharodon carcharias")
	require.True(t, ok)
	assert.Equal(t, models.ConservationFacts{
		CategoryCode:   "VU",
		Status:         models.StatusVU,
		RiskScore:      65,
		PopulationText: "Decreasing",
		HabitatText:    "Coastal waters",
		ThreatTitles:   []string{"Fishing", "Bycatch"},
		Trend:          models.TrendDecreasing,
	}, facts)
}

func TestClient_Lookup_GenusSpeciesFallback(t *testing.T) {
	client, fake := newRegistry(t, map[string]string{
		"/species/Loxodonta africana africana": `{"result":[]}`,
		"/species/Loxodonta africana":          `{"result":[{"code":"en","population":"415,000 individuals"}]}`,
	})

	facts, ok := client.Lookup(context.Background(), "Loxodonta africana africana")
	require.True(t, ok)
	assert.Equal(t, "EN", facts.CategoryCode)
	assert.Equal(t, models.StatusEN, facts.Status)
	assert.Equal(t, 80, facts.RiskScore)
	assert.Equal(t, "415,000 individuals", facts.PopulationText)
	assert.Equal(t, models.TrendUnknown, facts.Trend)
	assert.Empty(t, facts.ThreatTitles)
	assert.Equal(t, []string{"/species/Loxodonta africana africana", "/species/Loxodonta africana"}, fake.paths)
}

func TestClient_Lookup_Absent(t *testing.T) {
	client, _ := newRegistry(t, map[string]string{})
	_, ok := client.Lookup(context.Background(), "Vulpes vulpes")
	assert.False(t, ok)

	noKey := NewClient(Config{URL: "http://127.0.0.1:1"}, expressions.NewEvaluator(), ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	_, ok = noKey.Lookup(context.Background(), "Vulpes vulpes")
	assert.False(t, ok)
}

func TestClient_Lookup_UnknownCategory(t *testing.T) {
	client, _ := newRegistry(t, map[string]string{
		"/species/Vulpes vulpes": `{"result":[{"category":"XX","rationale":"  widespread  "}]}`,
	})

	facts, ok := client.Lookup(context.Background(), "Vulpes vulpes")
	require.True(t, ok)
	assert.Equal(t, models.StatusLC, facts.Status)
	assert.Equal(t, 25, facts.RiskScore)
	assert.Equal(t, "widespread", facts.PopulationText)
}

func TestClient_Threats(t *testing.T) {
	rows := `{"result":[`
	for i := 0; i < 20; i++ {
		if i > 0 {
			rows += ","
		}
		rows += `{"title":"Threat"}`
	}
	rows += `,{"code":"5.4"}]}`

	client, _ := newRegistry(t, map[string]string{
		"/species/threats/Panthera leo":    `{"result":[{"title":"Hunting"},{"code":"2.3"},{"title":""}]}`,
		"/species/threats/Panthera tigris": rows,
	})

	assert.Equal(t, []string{"Hunting", "2.3"}, client.Threats(context.Background(), "Panthera leo"))
	assert.Len(t, client.Threats(context.Background(), "Panthera tigris"), MaxThreats)
	assert.Equal(t, []string{}, client.Threats(context.Background(), "Felis catus"))
}

func TestClient_Habitats(t *testing.T) {
	client, _ := newRegistry(t, map[string]string{
		"/species/habitats/Panthera leo": `{"result":[{"habitat":"Savanna"},{"code":"3.1"},{"habitat":"Grassland"}]}`,
	})

	assert.Equal(t, []string{"Savanna", "3.1", "Grassland"}, client.Habitats(context.Background(), "Panthera leo"))
	assert.Equal(t, []string{}, client.Habitats(context.Background(), ""))
}

func TestClient_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}},
		{"truncated json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(Config{URL: server.URL, APIKey: "key", Timeout: 50 * time.Millisecond},
				expressions.NewEvaluator(), ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
			ctx := context.Background()

			_, ok := client.Lookup(ctx, "Carcharodon carcharias")
			assert.False(t, ok)
			assert.Equal(t, []string{}, client.Threats(ctx, "Carcharodon carcharias"))
			assert.Equal(t, []string{}, client.Habitats(ctx, "Carcharodon carcharias"))
		})
	}
}
