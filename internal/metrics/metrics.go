// Package metrics records analysis statistics in a Prometheus registry that
// can be written out in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/repcheck/internal/model"
)

const namespace = "repcheck"

// Recorder collects analysis metrics. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	analysesTotal  *prometheus.CounterVec
	tokens         prometheus.Gauge
	types          prometheus.Gauge
	phrases        prometheus.Gauge
	unmatched      prometheus.Gauge
	repetitiveness prometheus.Gauge
}

// New creates a recorder with its own registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each analysis stage",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		analysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses run, by outcome",
		}, []string{"outcome"}),
		tokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokens",
			Help:      "Tokens in the last analysed corpus",
		}),
		types: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "types",
			Help:      "Distinct types in the last analysed corpus",
		}),
		phrases: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phrases",
			Help:      "Repeated phrases found in the last analysed corpus",
		}),
		unmatched: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_tokens",
			Help:      "Tokens not covered by a counted phrase",
		}),
		repetitiveness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repetitiveness",
			Help:      "Fiducial over reduced text length of the last analysis",
		}),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStage records how long one stage took
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveOutcome counts a finished analysis. outcome is "ok" or a diag code.
func (r *Recorder) ObserveOutcome(outcome string) {
	if r == nil {
		return
	}
	r.analysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveReport sets the corpus gauges from a finished report
func (r *Recorder) ObserveReport(rep *model.Report) {
	if r == nil || rep == nil {
		return
	}
	r.tokens.Set(float64(rep.Diagnostics.Tokens))
	r.types.Set(float64(rep.Diagnostics.Types))
	r.phrases.Set(float64(rep.Diagnostics.Phrases))
	r.unmatched.Set(float64(rep.Diagnostics.Unmatched))
	r.repetitiveness.Set(rep.Repetitiveness)
}

// WriteTextfile writes every metric to path atomically
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
