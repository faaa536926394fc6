package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupIdentifyEnv points the classifier at a fake inference server and
// disables every optional upstream.
func setupIdentifyEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"outputs": []map[string]any{{"name": "output", "shape": []int{1, 2}, "data": []float64{0.1, 5}}},
		})
	}))
	t.Cleanup(server.Close)

	labels := filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(labels, []byte("goldfish, Carassius auratus\ngreat_white_shark, Carcharodon carcharias\n"), 0o600))

	for key, value := range map[string]string{
		"CLASSIFIER_URL":         server.URL,
		"CLASSIFIER_LABELS_PATH": labels,
		"ANIMAL_DETECT_API_KEY":  "",
		"IUCN_API_KEY":           "",
		"OPENAI_API_KEY":         "",
		"OPENAI_KEY":             "",
		"LOG_LEVEL":              "error",
	} {
		t.Setenv(key, value)
	}

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, x%48, color.RGBA{G: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "shark.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"serve", "migrate", "identify"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestIdentify_RequiresImage(t *testing.T) {
	_, err := execute(t, "identify")
	assert.Error(t, err)
}

func TestIdentify_CandidateOnly(t *testing.T) {
	path := setupIdentifyEnv(t)

	out, err := execute(t, "identify", "--candidate-only", path)
	require.NoError(t, err)

	var species map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &species))
	assert.Equal(t, "Great White Shark", species["name"])
	assert.Equal(t, "Carcharodon carcharias", species["sci"])
}

func TestIdentify_FullScanWithoutUpstreams(t *testing.T) {
	path := setupIdentifyEnv(t)

	out, err := execute(t, "identify", path)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "LC", result["status"])
	assert.Equal(t, float64(20), result["threatScore"])
	assert.Equal(t, "Unknown", result["habitat"])
	assert.Equal(t, false, result["savedToMap"])
	assert.Equal(t, float64(0), result["nearbySightings"])
}
