package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"ecoscanner/internal/logger"
	"ecoscanner/internal/model"
)

// RemoteDetector sends images to an HTTP inference service that runs the model
// out of process.
type RemoteDetector struct {
	inferenceURL string
	client       *http.Client
	thresholds   Thresholds
	logger       *logger.Logger
}

type remoteDetection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

type remoteResponse struct {
	Detections []remoteDetection `json:"detections"`
}

func NewRemoteDetector(inferenceURL string, thresholds Thresholds, logger *logger.Logger) *RemoteDetector {
	return &RemoteDetector{
		inferenceURL: inferenceURL,
		client:       &http.Client{Timeout: 60 * time.Second},
		thresholds:   thresholds,
		logger:       logger,
	}
}

func (d *RemoteDetector) Name() string { return "remote" }

// Detect validates the image locally, then posts it as the multipart field
// "file" and post-processes the returned detections.
func (d *RemoteDetector) Detect(ctx context.Context, img []byte) ([]model.Detection, error) {
	decoded, err := DecodeImage(img)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(img)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	bounds := decoded.Bounds()
	detections := make([]model.Detection, 0, len(result.Detections))
	for _, rd := range result.Detections {
		box := model.BoundingBox{
			X1: clamp(rd.Box[0], 0, float64(bounds.Dx())),
			Y1: clamp(rd.Box[1], 0, float64(bounds.Dy())),
			X2: clamp(rd.Box[2], 0, float64(bounds.Dx())),
			Y2: clamp(rd.Box[3], 0, float64(bounds.Dy())),
		}
		if rd.Label == "" || box.Area() == 0 {
			d.logger.Warning("Discarding malformed detection from inference service: %+v", rd)
			continue
		}
		detections = append(detections, model.Detection{
			Label:      rd.Label,
			Confidence: clamp(rd.Confidence, 0, 1),
			Box:        box,
		})
	}

	return d.thresholds.Apply(detections), nil
}

// Ready checks the service's /health endpoint on the same host.
func (d *RemoteDetector) Ready(ctx context.Context) error {
	u, err := url.Parse(d.inferenceURL)
	if err != nil {
		return fmt.Errorf("invalid inference url: %w", err)
	}
	health := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/health"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, health.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
