// Package metrics records pipeline counters in a private Prometheus registry
// that can be exported to a node-exporter textfile after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is safe for concurrent use. A nil *Recorder ignores every call.
type Recorder struct {
	reg          *prometheus.Registry
	llmCalls     *prometheus.CounterVec
	retries      *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	cacheHits    prometheus.Counter
	stageSeconds *prometheus.HistogramVec
	segments     *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peresub",
			Name:      "llm_calls_total",
			Help:      "Language model calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peresub",
			Name:      "retries_total",
			Help:      "Retried attempts by operation.",
		}, []string{"operation"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peresub",
			Name:      "fallbacks_total",
			Help:      "Segments that kept their input after an external failure, by stage.",
		}, []string{"stage"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peresub",
			Name:      "translation_cache_hits_total",
			Help:      "Basic translations served from translation memory.",
		}),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "peresub",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"stage"}),
		segments: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "peresub",
			Name:      "segments",
			Help:      "Segment count after each stage.",
		}, []string{"stage"}),
	}
	r.reg.MustRegister(r.llmCalls, r.retries, r.fallbacks, r.cacheHits, r.stageSeconds, r.segments)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) LLMCall(backend, outcome string) {
	if r == nil {
		return
	}
	r.llmCalls.WithLabelValues(backend, outcome).Inc()
}

func (r *Recorder) Retry(operation string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(operation).Inc()
}

func (r *Recorder) Fallback(stage string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(stage).Inc()
}

func (r *Recorder) CacheHit() {
	if r == nil {
		return
	}
	r.cacheHits.Inc()
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) SetSegments(stage string, n int) {
	if r == nil {
		return
	}
	r.segments.WithLabelValues(stage).Set(float64(n))
}

// WriteTextfile writes the registry in text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
