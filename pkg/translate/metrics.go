package translate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider call metrics
	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_provider_requests_total",
			Help: "Total number of provider operations",
		},
		[]string{"provider", "operation", "status"},
	)

	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_provider_request_duration_seconds",
			Help:    "Duration of provider operations in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"provider", "operation", "status"},
	)

	translationRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_translation_request_size_bytes",
			Help:    "Size of translation request text in bytes",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"provider"},
	)

	translationResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_translation_response_size_bytes",
			Help:    "Size of translated text in bytes",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"provider"},
	)

	// Model fallback metrics
	modelAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_model_attempts_total",
			Help: "Total number of translation model attempts",
		},
		[]string{"provider", "model", "status"},
	)

	detectionDefaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_detection_defaults_total",
			Help: "Number of detections that fell back to the default language",
		},
		[]string{"provider"},
	)
)

// MetricsCollector records metrics for a single provider.
type MetricsCollector struct {
	provider string
}

// NewMetricsCollector creates a metrics collector labelled with the provider.
func NewMetricsCollector(provider ProviderKind) *MetricsCollector {
	return &MetricsCollector{provider: string(provider)}
}

// RecordDetection records a detection call.
func (mc *MetricsCollector) RecordDetection(duration time.Duration, success bool) {
	status := statusLabel(success)
	providerRequestsTotal.WithLabelValues(mc.provider, "detect", status).Inc()
	providerRequestDuration.WithLabelValues(mc.provider, "detect", status).Observe(duration.Seconds())
}

// RecordTranslation records a translation call, fallback included.
func (mc *MetricsCollector) RecordTranslation(duration time.Duration, success bool, requestSize, responseSize int) {
	status := statusLabel(success)
	providerRequestsTotal.WithLabelValues(mc.provider, "translate", status).Inc()
	providerRequestDuration.WithLabelValues(mc.provider, "translate", status).Observe(duration.Seconds())
	translationRequestSize.WithLabelValues(mc.provider).Observe(float64(requestSize))
	if success {
		translationResponseSize.WithLabelValues(mc.provider).Observe(float64(responseSize))
	}
}

// RecordModelAttempt records a single model attempt.
func (mc *MetricsCollector) RecordModelAttempt(model string, success bool) {
	modelAttemptsTotal.WithLabelValues(mc.provider, model, statusLabel(success)).Inc()
}

// RecordDetectionDefault records a detection that degraded to the default language.
func (mc *MetricsCollector) RecordDetectionDefault() {
	detectionDefaultsTotal.WithLabelValues(mc.provider).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
