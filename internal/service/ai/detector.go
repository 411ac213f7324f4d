// Package ai turns image bytes into filtered, overlap-suppressed detections.
//
// Backends live behind the Detector interface: an OpenCV DNN backend in the
// dnn subpackage, an HTTP inference service, and an Ollama vision model.
package ai

import (
	"context"
	"errors"
	"fmt"

	"ecoscanner/internal/model"
)

// Detector finds objects in an encoded image. Implementations apply the
// configured confidence threshold and overlap suppression before returning.
// An unreadable image yields an error matching ErrInput; a readable image with
// nothing in it yields an empty slice and a nil error.
type Detector interface {
	Detect(ctx context.Context, img []byte) ([]model.Detection, error)
	// Ready reports whether the backend can serve requests.
	Ready(ctx context.Context) error
	Name() string
}

// Annotator draws detections onto an image and returns it JPEG encoded.
type Annotator interface {
	Annotate(img []byte, detections []model.Detection) ([]byte, error)
}

// ErrInput matches every *InputError.
var ErrInput = errors.New("image could not be read")

// InputError reports image bytes that cannot be decoded into a usable picture.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid image: %s: %v", e.Reason, e.Err)
	}
	return "invalid image: " + e.Reason
}

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrInput }

// Thresholds holds the post-processing knobs shared by all backends.
type Thresholds struct {
	Confidence float64
	NMS        float64
}

// Apply drops detections below the confidence threshold and suppresses
// overlapping boxes of the same label.
func (t Thresholds) Apply(detections []model.Detection) []model.Detection {
	return Suppress(Filter(detections, t.Confidence), t.NMS)
}
