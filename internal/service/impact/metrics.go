package impact

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Scan outcomes recorded by Metrics.
const (
	OutcomeRecords = "records"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid_image"
	OutcomeError   = "error"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	scansTotal        *prometheus.CounterVec
	recordsTotal      *prometheus.CounterVec
	co2EstimatedTotal *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecoscanner_scans_total",
				Help: "Total number of scans by outcome",
			},
			[]string{"outcome"},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecoscanner_impact_records_total",
				Help: "Total number of impact records produced by material",
			},
			[]string{"material"},
		),
		co2EstimatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecoscanner_co2_estimated_kg_total",
				Help: "Sum of estimated CO2 savings in kilograms by material",
			},
			[]string{"material"},
		),
		inferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ecoscanner_inference_duration_seconds",
				Help: "Time spent in the detector per scan",
				// 50ms .. ~25s
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"backend"},
		),
	}

	for _, c := range []prometheus.Collector{m.scansTotal, m.recordsTotal, m.co2EstimatedTotal, m.inferenceDuration} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeScan(outcome string) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeInference(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.inferenceDuration.WithLabelValues(backend).Observe(seconds)
}

func (m *Metrics) observeRecord(material string, co2 float64) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(material).Inc()
	m.co2EstimatedTotal.WithLabelValues(material).Add(co2)
}
