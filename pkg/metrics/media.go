package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MediaMetrics records upload and delete outcomes for the image pipeline.
type MediaMetrics struct {
	uploadDuration *prometheus.HistogramVec
	uploads        *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	orphanCleanups prometheus.Counter
}

// NewMediaMetrics registers the media pipeline metrics on the provided registerer.
func NewMediaMetrics(reg prometheus.Registerer) *MediaMetrics {
	if reg == nil {
		return &MediaMetrics{}
	}
	uploadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_upload_duration_seconds",
		Help:    "Duration of image upload operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_uploads_total",
		Help: "Image upload attempts by outcome.",
	}, []string{"outcome"})
	deletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_deletes_total",
		Help: "Image delete attempts by outcome.",
	}, []string{"outcome"})
	orphanCleanups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_orphan_cleanups_total",
		Help: "Compensating blob deletes after a failed metadata insert.",
	})
	reg.MustRegister(uploadDuration, uploads, deletes, orphanCleanups)
	return &MediaMetrics{
		uploadDuration: uploadDuration,
		uploads:        uploads,
		deletes:        deletes,
		orphanCleanups: orphanCleanups,
	}
}

// ObserveUpload records one upload attempt with its duration.
func (m *MediaMetrics) ObserveUpload(outcome string, duration time.Duration) {
	if m == nil || m.uploads == nil {
		return
	}
	label := normalizeOutcome(outcome)
	m.uploads.WithLabelValues(label).Inc()
	m.uploadDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncDelete increments the delete counter for the given outcome.
func (m *MediaMetrics) IncDelete(outcome string) {
	if m == nil || m.deletes == nil {
		return
	}
	m.deletes.WithLabelValues(normalizeOutcome(outcome)).Inc()
}

// IncOrphanCleanup counts a compensating blob delete.
func (m *MediaMetrics) IncOrphanCleanup() {
	if m == nil || m.orphanCleanups == nil {
		return
	}
	m.orphanCleanups.Inc()
}

func normalizeOutcome(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
