package classifier

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 128, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeLabels(t *testing.T, labels string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(labels), 0o600))
	return path
}

func inferenceServer(t *testing.T, scores []float64, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req inferenceRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Equal(t, []int{1, 3, 224, 224}, req.Inputs[0].Shape)
			assert.Len(t, req.Inputs[0].Data, 3*224*224)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"outputs": []map[string]any{{"name": "output", "shape": []int{1, len(scores)}, "data": scores}},
		})
	}))
}

func TestClassifier_Classify(t *testing.T) {
	var calls int32
	server := inferenceServer(t, []float64{0.1, 4.0, 0.2}, &calls)
	defer server.Close()

	c := NewClassifier(Config{
		URL:        server.URL,
		LabelsPath: writeLabels(t, "goldfish, Carassius auratus\ngreat_white_shark, Carcharodon carcharias\ntiger shark\n"),
	}, testLogger())

	label, confidence, err := c.Classify(context.Background(), pngBytes(t, 320, 240))
	require.NoError(t, err)
	assert.Equal(t, "great_white_shark, Carcharodon carcharias", label)
	assert.InDelta(t, 95.9, confidence, 0.1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClassifier_Probabilities(t *testing.T) {
	var calls int32
	server := inferenceServer(t, []float64{0.2, 0.7, 0.1}, &calls)
	defer server.Close()

	c := NewClassifier(Config{URL: server.URL, LabelsPath: writeLabels(t, "a\nb\nc\n"), Output: OutputProbabilities}, testLogger())

	label, confidence, err := c.Classify(context.Background(), pngBytes(t, 50, 80))
	require.NoError(t, err)
	assert.Equal(t, "b", label)
	assert.InDelta(t, 70, confidence, 1e-9)
}

func TestClassifier_UndecodableImage(t *testing.T) {
	var calls int32
	server := inferenceServer(t, []float64{1}, &calls)
	defer server.Close()

	c := NewClassifier(Config{URL: server.URL, LabelsPath: writeLabels(t, "a\n")}, testLogger())

	_, _, err := c.Classify(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClassification))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestClassifier_ModelUnavailable(t *testing.T) {
	c := NewClassifier(Config{LabelsPath: writeLabels(t, "a\n")}, testLogger())
	_, _, err := c.Classify(context.Background(), pngBytes(t, 10, 10))
	assert.ErrorIs(t, err, ErrClassification)

	c = NewClassifier(Config{URL: "http://127.0.0.1:1", LabelsPath: filepath.Join(t.TempDir(), "missing.txt")}, testLogger())
	_, _, err = c.Classify(context.Background(), pngBytes(t, 10, 10))
	assert.ErrorIs(t, err, ErrClassification)
}

func TestClassifier_LabelMismatch(t *testing.T) {
	var calls int32
	server := inferenceServer(t, []float64{1, 2}, &calls)
	defer server.Close()

	c := NewClassifier(Config{URL: server.URL, LabelsPath: writeLabels(t, "a\nb\nc\n")}, testLogger())
	_, _, err := c.Classify(context.Background(), pngBytes(t, 10, 10))
	assert.ErrorIs(t, err, ErrClassification)
}

func TestClassifier_LabelsLoadedOnce(t *testing.T) {
	path := writeLabels(t, "a\nb\n")
	c := NewClassifier(Config{LabelsPath: path}, testLogger())

	first, err := c.loadLabels()
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	second, err := c.loadLabels()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPreprocess(t *testing.T) {
	img, err := Decode(pngBytes(t, 400, 300))
	require.NoError(t, err)

	tensor := Preprocess(img)
	require.Len(t, tensor, 3*224*224)

	plane := 224 * 224
	assert.InDelta(t, (1-0.485)/0.229, tensor[0], 0.05)
	assert.InDelta(t, (128.0/255-0.456)/0.224, tensor[plane], 0.05)
	assert.InDelta(t, (0-0.406)/0.225, tensor[2*plane], 0.05)
}

func TestPreprocess_ExtremeAspectRatio(t *testing.T) {
	img, err := Decode(pngBytes(t, 20000, 1))
	require.NoError(t, err)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	tensor := Preprocess(img)
	runtime.ReadMemStats(&after)

	require.Len(t, tensor, 3*224*224)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(8<<20))
	assert.InDelta(t, (1-0.485)/0.229, tensor[0], 0.05)
}

func TestCropRect(t *testing.T) {
	assert.Equal(t, image.Rect(68, 18, 331, 281), CropRect(image.Rect(0, 0, 400, 300)))
	assert.Equal(t, image.Rect(9999, 0, 10000, 1), CropRect(image.Rect(0, 0, 20000, 1)))
	assert.Equal(t, image.Rect(16, 16, 240, 240), CropRect(image.Rect(0, 0, 256, 256)))
}

// pngHeader is a PNG signature plus an IHDR chunk declaring w x h RGB pixels.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 2

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_RejectsOversizedDimensions(t *testing.T) {
	_, err := Decode(pngHeader(100000, 100000))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassification)
	assert.Contains(t, err.Error(), "too large")
}

func TestSoftmaxArgmax(t *testing.T) {
	probs := Softmax([]float64{1000, 1000, 999})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-9)
	assert.Equal(t, 0, Argmax(probs))
	assert.Nil(t, Softmax(nil))
}

func TestSpeciesFromLabel(t *testing.T) {
	tests := []struct {
		raw        string
		commonName string
		sciName    string
	}{
		{"great_white_shark, Carcharodon carcharias", "Great White Shark", "Carcharodon carcharias"},
		{"tiger shark", "Tiger Shark", "Tiger Shark"},
		{"tabby, tabby cat", "Tabby", "tabby cat"},
		{"African elephant, Loxodonta africana africana", "African Elephant", "African Elephant"},
		{"king penguin, Aptenodytes", "King Penguin", "King Penguin"},
		{"", "Unknown", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			common, sci := SpeciesFromLabel(tt.raw)
			assert.Equal(t, tt.commonName, common)
			assert.Equal(t, tt.sciName, sci)
		})
	}
}
