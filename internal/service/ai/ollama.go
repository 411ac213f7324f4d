package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ollama/ollama/api"

	"ecoscanner/internal/logger"
	"ecoscanner/internal/model"
)

const ollamaMaxDim = 1024

// OllamaDetector prompts an Ollama vision model for boxes. Coordinates come
// back normalized to [0,1] and are scaled to the decoded image size.
type OllamaDetector struct {
	client     *api.Client
	model      string
	labels     []string
	thresholds Thresholds
	logger     *logger.Logger
}

// NewOllamaDetector builds a client for baseURL. Any path in baseURL is
// dropped; the API client appends its own.
func NewOllamaDetector(baseURL, modelName string, labels []string, thresholds Thresholds, logger *logger.Logger) (*OllamaDetector, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ollama url: %q", baseURL)
	}

	client := api.NewClient(&url.URL{Scheme: parsed.Scheme, Host: parsed.Host}, http.DefaultClient)

	return &OllamaDetector{
		client:     client,
		model:      modelName,
		labels:     labels,
		thresholds: thresholds,
		logger:     logger,
	}, nil
}

func (d *OllamaDetector) Name() string { return "ollama" }

func (d *OllamaDetector) Detect(ctx context.Context, img []byte) ([]model.Detection, error) {
	decoded, err := DecodeImage(img)
	if err != nil {
		return nil, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
		defer cancel()
	}

	prepared := decoded
	b := decoded.Bounds()
	if b.Dx() > ollamaMaxDim || b.Dy() > ollamaMaxDim {
		if b.Dx() >= b.Dy() {
			prepared = imaging.Resize(decoded, ollamaMaxDim, 0, imaging.Lanczos)
		} else {
			prepared = imaging.Resize(decoded, 0, ollamaMaxDim, imaging.Lanczos)
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image for model: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: d.prompt(),
				Images:  []api.ImageData{api.ImageData(buf.Bytes())},
			},
		},
		Stream:  &streamFalse,
		Options: map[string]any{"temperature": 0},
	}

	var content string
	err = d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}

	detections, err := parseOllamaDetections(content, b.Dx(), b.Dy())
	if err != nil {
		d.logger.Warning("Unparseable response from %s: %v", d.model, err)
		return nil, err
	}
	return d.thresholds.Apply(detections), nil
}

// Ready sends a heartbeat to the Ollama server.
func (d *OllamaDetector) Ready(ctx context.Context) error {
	if err := d.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	return nil
}

func (d *OllamaDetector) prompt() string {
	return `Detect every piece of recyclable waste in this image.
Use only these labels: ` + strings.Join(d.labels, ", ") + `.
Respond with JSON only, no prose, in this shape:
{"detections":[{"label":"<label>","confidence":<0..1>,"box":[x1,y1,x2,y2]}]}
Box coordinates are fractions of the image width and height in [0,1].
If nothing is found respond with {"detections":[]}.`
}

func parseOllamaDetections(raw string, width, height int) ([]model.Detection, error) {
	cleaned := sanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("model returned non-JSON response")
	}

	var result remoteResponse
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	w, h := float64(width), float64(height)
	detections := make([]model.Detection, 0, len(result.Detections))
	for _, rd := range result.Detections {
		box := model.BoundingBox{
			X1: clamp(rd.Box[0], 0, 1) * w,
			Y1: clamp(rd.Box[1], 0, 1) * h,
			X2: clamp(rd.Box[2], 0, 1) * w,
			Y2: clamp(rd.Box[3], 0, 1) * h,
		}
		if rd.Label == "" || box.Area() == 0 {
			continue
		}
		detections = append(detections, model.Detection{
			Label:      strings.TrimSpace(rd.Label),
			Confidence: clamp(rd.Confidence, 0, 1),
			Box:        box,
		})
	}
	return detections, nil
}

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)//.*$`)
	reTrailing     = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON strips code fences, comments and trailing commas, then
// keeps the outermost object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
