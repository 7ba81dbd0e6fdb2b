// Package metrics counts conversion activity with Prometheus collectors and
// exports them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cbzmage"

// Book statuses used as the status label.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Recorder owns a private registry so tests and repeated runs never collide
// with the global default registry.
type Recorder struct {
	registry     *prometheus.Registry
	books        *prometheus.CounterVec
	pages        *prometheus.CounterVec
	covers       *prometheus.CounterVec
	archiveBytes prometheus.Counter
	duration     *prometheus.HistogramVec
}

// BookSample is what one processed book contributes.
type BookSample struct {
	Mode         string
	Status       string
	HdImages     int
	SdImages     int
	CoverSource  string
	ArchiveBytes int64
	Duration     time.Duration
}

// NewRecorder registers the cbzmage collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		books: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "books_total",
				Help:      "Books processed by mode and status.",
			},
			[]string{"mode", "status"},
		),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Pages resolved by image source.",
			},
			[]string{"source"},
		),
		covers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "covers_total",
				Help:      "Covers written by source.",
			},
			[]string{"source"},
		),
		archiveBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_bytes_total",
			Help:      "Bytes written to finished archives.",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "book_duration_seconds",
				Help:      "Time spent per book.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
	}
	r.registry.MustRegister(r.books, r.pages, r.covers, r.archiveBytes, r.duration)
	return r
}

// Registry exposes the registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveBook records one book outcome. A nil Recorder ignores the call.
func (r *Recorder) ObserveBook(sample BookSample) {
	if r == nil {
		return
	}
	r.books.WithLabelValues(sample.Mode, sample.Status).Inc()
	if sample.Duration > 0 {
		r.duration.WithLabelValues(sample.Mode).Observe(sample.Duration.Seconds())
	}
	if sample.Status != StatusSucceeded {
		return
	}
	r.pages.WithLabelValues("hd").Add(float64(sample.HdImages))
	r.pages.WithLabelValues("sd").Add(float64(sample.SdImages))
	if sample.CoverSource != "" && sample.CoverSource != "none" {
		r.covers.WithLabelValues(sample.CoverSource).Inc()
	}
	if sample.ArchiveBytes > 0 {
		r.archiveBytes.Add(float64(sample.ArchiveBytes))
	}
}

// WriteTextfile writes every metric to path atomically. An empty path is a
// no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
