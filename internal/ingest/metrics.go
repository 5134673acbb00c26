package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage names used for the duration histogram
const (
	StageFetch   = "fetch"
	StageOCR     = "ocr"
	StageExtract = "extract"
	StageWrite   = "write"
)

// Metrics records ingestion outcomes and stage timings
type Metrics struct {
	results *prometheus.CounterVec
	stages  *prometheus.HistogramVec
}

// NewMetrics creates the ingestion collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betslip_ingest_results_total",
			Help: "Ingested uploads by terminal outcome.",
		}, []string{"outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "betslip_ingest_stage_duration_seconds",
			Help:    "Duration of each ingestion stage.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
	}
	// zero series so dashboards see every outcome
	for _, o := range Outcomes {
		m.results.WithLabelValues(o.String())
	}
	if reg != nil {
		reg.MustRegister(m.results, m.stages)
	}
	return m
}

func (m *Metrics) observeResult(o Outcome) {
	m.results.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}
