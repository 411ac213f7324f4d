package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoscanner/internal/logger"
)

func TestSanitizeModelJSON(t *testing.T) {
	raw := "```json\n{\"detections\": [\n  {\"label\": \"Can\", \"confidence\": 0.8, \"box\": [0.1, 0.1, 0.5, 0.5]}, // the can\n]}\n```"

	cleaned := sanitizeModelJSON(raw)

	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(cleaned), &v))
	assert.Contains(t, v, "detections")
}

func TestParseOllamaDetections_ScalesBoxes(t *testing.T) {
	raw := `Sure! {"detections":[{"label":"Can","confidence":0.8,"box":[0.1,0.2,0.5,0.6]},{"label":"Cup","confidence":0.9,"box":[0.5,0.5,0.5,0.9]}]}`

	got, err := parseOllamaDetections(raw, 200, 100)
	require.NoError(t, err)

	require.Len(t, got, 1, "zero-width box is dropped")
	assert.Equal(t, "Can", got[0].Label)
	assert.InDelta(t, 20.0, got[0].Box.X1, 1e-9)
	assert.InDelta(t, 20.0, got[0].Box.Y1, 1e-9)
	assert.InDelta(t, 100.0, got[0].Box.X2, 1e-9)
	assert.InDelta(t, 60.0, got[0].Box.Y2, 1e-9)
}

func TestParseOllamaDetections_NonJSON(t *testing.T) {
	_, err := parseOllamaDetections("I see a can on a table.", 10, 10)
	assert.Error(t, err)
}

func TestOllamaDetector_Detect(t *testing.T) {
	setupHTTPMock(t)

	content := `{"detections":[{"label":"Drink can","confidence":0.77,"box":[0,0,0.5,0.5]},{"label":"Drink can","confidence":0.2,"box":[0.5,0.5,1,1]}]}`
	reply, err := json.Marshal(map[string]any{
		"model":   "llava",
		"message": map[string]string{"role": "assistant", "content": content},
		"done":    true,
	})
	require.NoError(t, err)

	httpmock.RegisterResponder("POST", "http://ollama.local:11434/api/chat",
		httpmock.NewBytesResponder(http.StatusOK, reply))

	d, err := NewOllamaDetector("http://ollama.local:11434/api/chat", "llava", []string{"Drink can"},
		Thresholds{Confidence: 0.4, NMS: 0.5}, logger.Discard())
	require.NoError(t, err)

	got, err := d.Detect(context.Background(), testPNG(t, 64, 32))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Drink can", got[0].Label)
	assert.InDelta(t, 32.0, got[0].Box.X2, 1e-9)
	assert.InDelta(t, 16.0, got[0].Box.Y2, 1e-9)
}

func TestNewOllamaDetector_InvalidURL(t *testing.T) {
	_, err := NewOllamaDetector("not a url", "llava", nil, Thresholds{}, logger.Discard())
	assert.Error(t, err)
}
