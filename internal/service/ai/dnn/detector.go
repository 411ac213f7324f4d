// Package dnn runs YOLOv8-format ONNX models through OpenCV's DNN module.
package dnn

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sort"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"ecoscanner/internal/logger"
	"ecoscanner/internal/model"
	"ecoscanner/internal/service/ai"
)

// Detector is safe for concurrent use. gocv.Net is not, so inference calls
// are serialized on mu.
type Detector struct {
	mu         sync.Mutex
	net        gocv.Net
	loaded     bool
	initErr    error
	labels     []string
	inputSize  int
	thresholds ai.Thresholds
	weights    string
	logger     *logger.Logger
}

// Options configures a Detector.
type Options struct {
	WeightsPath string
	LabelsPath  string
	InputSize   int
	Thresholds  ai.Thresholds
}

// New loads the network. A load failure is logged and kept: the detector is
// still returned, Ready reports the failure and Detect refuses to run.
func New(opts Options, logger *logger.Logger) *Detector {
	d := &Detector{
		inputSize:  opts.InputSize,
		thresholds: opts.Thresholds,
		weights:    opts.WeightsPath,
		logger:     logger,
	}

	if err := d.initializeNet(opts); err != nil {
		d.initErr = err
		d.logger.Warning("Could not initialize detection network: %v", err)
		return d
	}

	return d
}

func (d *Detector) initializeNet(opts Options) error {
	if _, err := os.Stat(opts.WeightsPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", opts.WeightsPath)
	}

	labels, err := readLabels(opts.LabelsPath)
	if err != nil {
		return err
	}

	net := gocv.ReadNetFromONNX(opts.WeightsPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", opts.WeightsPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = net
	d.labels = labels
	d.loaded = true
	d.logger.Info("Detection network initialized from %s with %d classes", opts.WeightsPath, len(labels))
	return nil
}

func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
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
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

func (d *Detector) Name() string { return "dnn" }

// Weights returns the model file the detector was built from.
func (d *Detector) Weights() string { return d.weights }

func (d *Detector) Ready(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		if d.initErr != nil {
			return d.initErr
		}
		return fmt.Errorf("detection network not initialized")
	}
	return nil
}

// Detect runs the network on img. The image is stretched to the square input
// size and boxes are scaled back to source pixels.
func (d *Detector) Detect(ctx context.Context, img []byte) ([]model.Detection, error) {
	if len(img) == 0 {
		return nil, &ai.InputError{Reason: "empty upload"}
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, &ai.InputError{Reason: "failed to decode image", Err: err}
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, &ai.InputError{Reason: "decoded image is empty"}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	if !d.loaded {
		d.mu.Unlock()
		return nil, fmt.Errorf("detection network not initialized")
	}
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	return d.decodeOutput(output, mat.Cols(), mat.Rows())
}

// decodeOutput reads a [1, 4+classes, anchors] tensor. Each anchor holds
// cx, cy, w, h followed by one score per class.
func (d *Detector) decodeOutput(output gocv.Mat, cols, rows int) ([]model.Detection, error) {
	sizes := output.Size()
	if len(sizes) != 3 || sizes[1] < 5 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	attrs := sizes[1]
	numClasses := attrs - 4
	if numClasses != len(d.labels) {
		d.logger.Warning("Model reports %d classes but labels file has %d", numClasses, len(d.labels))
	}

	reshaped := output.Reshape(1, attrs)
	defer reshaped.Close()
	anchors := gocv.NewMat()
	defer anchors.Close()
	gocv.Transpose(reshaped, &anchors)

	xFactor := float64(cols) / float64(d.inputSize)
	yFactor := float64(rows) / float64(d.inputSize)

	type candidate struct {
		classID int
		score   float32
		rect    image.Rectangle
		box     model.BoundingBox
	}
	byClass := make(map[int][]candidate)

	for i := 0; i < anchors.Rows(); i++ {
		bestID, best := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := anchors.GetFloatAt(i, 4+c); s > best {
				bestID, best = c, s
			}
		}
		if bestID < 0 || float64(best) < d.thresholds.Confidence {
			continue
		}

		cx := float64(anchors.GetFloatAt(i, 0))
		cy := float64(anchors.GetFloatAt(i, 1))
		w := float64(anchors.GetFloatAt(i, 2))
		h := float64(anchors.GetFloatAt(i, 3))

		box := model.BoundingBox{
			X1: clampF((cx-w/2)*xFactor, 0, float64(cols)),
			Y1: clampF((cy-h/2)*yFactor, 0, float64(rows)),
			X2: clampF((cx+w/2)*xFactor, 0, float64(cols)),
			Y2: clampF((cy+h/2)*yFactor, 0, float64(rows)),
		}
		if box.Area() == 0 {
			continue
		}

		byClass[bestID] = append(byClass[bestID], candidate{
			classID: bestID,
			score:   best,
			rect:    image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)),
			box:     box,
		})
	}

	var detections []model.Detection
	for classID, cands := range byClass {
		rects := make([]image.Rectangle, len(cands))
		scores := make([]float32, len(cands))
		for i, c := range cands {
			rects[i] = c.rect
			scores[i] = c.score
		}
		for _, idx := range gocv.NMSBoxes(rects, scores, float32(d.thresholds.Confidence), float32(d.thresholds.NMS)) {
			c := cands[idx]
			detections = append(detections, model.Detection{
				Label:      d.labelFor(classID),
				Confidence: float64(c.score),
				Box:        c.box,
			})
		}
	}

	// NMSBoxes keeps pairs whose overlap equals the threshold exactly.
	detections = ai.Suppress(detections, d.thresholds.NMS)

	sort.Slice(detections, func(i, j int) bool {
		if detections[i].Confidence != detections[j].Confidence {
			return detections[i].Confidence > detections[j].Confidence
		}
		return detections[i].Label < detections[j].Label
	})
	return detections, nil
}

func (d *Detector) labelFor(classID int) string {
	if classID >= 0 && classID < len(d.labels) {
		return d.labels[classID]
	}
	return fmt.Sprintf("class%d", classID)
}

// Annotate draws detections on the image and returns a re-encoded JPEG buffer.
func (d *Detector) Annotate(img []byte, detections []model.Detection) ([]byte, error) {
	green := color.RGBA{R: 0, G: 200, B: 83, A: 0}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	for _, detection := range detections {
		rect := image.Rect(int(detection.Box.X1), int(detection.Box.Y1), int(detection.Box.X2), int(detection.Box.Y2))
		if err := gocv.Rectangle(&mat, rect, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.0f%%)", detection.Label, detection.Confidence*100)
		pt := image.Pt(rect.Min.X, rect.Min.Y-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, green, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	finalImage := make([]byte, len(buf.GetBytes()))
	copy(finalImage, buf.GetBytes())

	return finalImage, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil
	}
	d.loaded = false
	return d.net.Close()
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
