// Package impact turns an image into per-object CO2 savings estimates.
package impact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/logger"
	"ecoscanner/internal/model"
	"ecoscanner/internal/service/ai"
	"ecoscanner/internal/service/correction"
)

// Result is the outcome of one scan.
type Result struct {
	Records    []model.ImpactRecord
	Detections []model.Detection // corrected, same order as Records
	Annotated  []byte            // JPEG overlay, nil when annotation failed
	Inference  time.Duration
}

// Options configures a Pipeline. Annotator and Metrics may be nil.
type Options struct {
	Detector    ai.Detector
	Annotator   ai.Annotator
	Corrector   correction.Corrector
	Catalog     *catalog.Catalog
	WeightGrams float64
	Metrics     *Metrics
}

// Pipeline runs detector, label correction, catalog lookup and estimation.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	detector    ai.Detector
	annotator   ai.Annotator
	corrector   correction.Corrector
	catalog     *catalog.Catalog
	weightGrams float64
	metrics     *Metrics
	logger      *logger.Logger
}

func NewPipeline(opts Options, logger *logger.Logger) (*Pipeline, error) {
	if opts.Detector == nil {
		return nil, fmt.Errorf("pipeline requires a detector")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("pipeline requires a catalog")
	}
	if opts.WeightGrams <= 0 {
		return nil, fmt.Errorf("item weight must be positive, got %v", opts.WeightGrams)
	}

	return &Pipeline{
		detector:    opts.Detector,
		annotator:   opts.Annotator,
		corrector:   opts.Corrector,
		catalog:     opts.Catalog,
		weightGrams: opts.WeightGrams,
		metrics:     opts.Metrics,
		logger:      logger,
	}, nil
}

// Run scans img. Errors matching ai.ErrInput are returned unchanged. A scan
// with no detections returns an empty Result and a nil error.
func (p *Pipeline) Run(ctx context.Context, img []byte) (*Result, error) {
	start := time.Now()
	detections, err := p.detector.Detect(ctx, img)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, ai.ErrInput) {
			p.metrics.observeScan(OutcomeInvalid)
			return nil, err
		}
		p.metrics.observeScan(OutcomeError)
		return nil, fmt.Errorf("detector %s failed: %w", p.detector.Name(), err)
	}
	p.metrics.observeInference(p.detector.Name(), elapsed.Seconds())

	corrected := p.corrector.Correct(detections)

	result := &Result{
		Records:    make([]model.ImpactRecord, 0, len(corrected)),
		Detections: corrected,
		Inference:  elapsed,
	}
	for _, d := range corrected {
		material := p.catalog.CategoryOf(d.Label)
		co2 := p.Estimate(material)
		result.Records = append(result.Records, model.ImpactRecord{
			Label:      d.Label,
			Material:   material,
			Confidence: d.Confidence,
			CO2SavedKg: co2,
		})
		p.metrics.observeRecord(string(material), co2)
	}

	if len(result.Records) == 0 {
		p.metrics.observeScan(OutcomeEmpty)
		return result, nil
	}
	p.metrics.observeScan(OutcomeRecords)

	if p.annotator != nil {
		annotated, err := p.annotator.Annotate(img, corrected)
		if err != nil {
			p.logger.Warning("Failed to annotate scan: %v", err)
		} else {
			result.Annotated = annotated
		}
	}

	return result, nil
}

// Estimate returns the CO2 saved by recycling one item of material.
func (p *Pipeline) Estimate(material catalog.Category) float64 {
	return Estimate(p.catalog, material, p.weightGrams)
}

// Estimate computes round((weightGrams/1000) * factor, 4). The weight is a
// fixed per-item approximation since an image carries no mass information.
func Estimate(c *catalog.Catalog, material catalog.Category, weightGrams float64) float64 {
	return model.Round4((weightGrams / 1000) * c.FactorOf(material))
}
