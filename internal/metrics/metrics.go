package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP requests
	RequestsTotal *prometheus.CounterVec

	// Download batches
	BatchesTotal      *prometheus.CounterVec // by outcome: completed, failed, cancelled
	BatchDurationHist prometheus.Histogram
	ActiveBatches     prometheus.Gauge

	// File-level metrics
	FilesRequestedHist  prometheus.Histogram   // Sounds requested per batch
	FilesSuccessHist    prometheus.Histogram   // Files successfully downloaded per batch
	FileDownloadsTotal  *prometheus.CounterVec // Per-file attempts by result: success, skipped, error
	DownloadedBytesHist prometheus.Histogram

	// Fetch backend performance
	FetchDuration *prometheus.HistogramVec // by provider (http, s3) and result

	// Persistence store
	StoreOpsTotal       *prometheus.CounterVec // by operation and result
	StoreOpDuration     *prometheus.HistogramVec
	SamplesDeletedTotal prometheus.Counter // files removed by the sample GC

	// Search API
	SearchRequestsTotal *prometheus.CounterVec // by result: success, error
	SearchCacheTotal    *prometheus.CounterVec // by result: hit, miss

	// Authentication/Security
	SignatureFailuresTotal prometheus.Counter
	ExpiredRequestsTotal   prometheus.Counter

	// Circuit breaker
	CircuitBreakerState *prometheus.GaugeVec // by backend: fetch, search

	// Health checks
	HealthStatus       *prometheus.GaugeVec   // by component (1=healthy, 0=unhealthy)
	HealthChecksFailed *prometheus.CounterVec // by component

	// System metrics
	MemoryGauge     prometheus.Gauge
	GoroutinesGauge prometheus.Gauge
}

// New creates and registers all metrics
func New() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "soundcrate_requests_total",
				Help: "Total number of HTTP requests by status code",
			}, []string{"status"}),

			BatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "soundcrate_download_batches_total",
				Help: "Total number of download batches by outcome (completed, failed, cancelled)",
			}, []string{"outcome"}),
			BatchDurationHist: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "soundcrate_batch_duration_seconds",
				Help:    "Download batch duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			}),
			ActiveBatches: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "soundcrate_active_batches",
				Help: "Number of currently running download batches (0 or 1)",
			}),

			FilesRequestedHist: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "soundcrate_files_requested",
				Help:    "Number of sounds requested per batch",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			}),
			FilesSuccessHist: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "soundcrate_files_success",
				Help:    "Number of files successfully downloaded per batch",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			}),
			FileDownloadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "soundcrate_file_downloads_total",
				Help: "Per-file download attempts by result (success, skipped, error)",
			}, []string{"result"}),
			DownloadedBytesHist: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "soundcrate_downloaded_bytes",
				Help:    "Bytes written to disk per downloaded file",
				Buckets: prometheus.ExponentialBuckets(1024, 2, 20), // Up to ~1GB
			}),

			FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "soundcrate_fetch_duration_seconds",
				Help:    "Remote fetch duration per file in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			}, []string{"provider", "result"}),

			StoreOpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "soundcrate_store_ops_total",
				Help: "Persistence store operations by operation and result",
			}, []string{"op", "result"}),
			StoreOpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "soundcrate_store_op_duration_seconds",
				Help:    "Persistence store operation duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			}, []string{"op"}),
			SamplesDeletedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "soundcrate_samples_deleted_total",
				Help: "Total number of sample files removed by cleanup",
			}),

			SearchRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "soundcrate_search_requests_total",
				Help: "Search API requests by result (success, error)",
			}, []string{"result"}),
			SearchCacheTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "soundcrate_search_cache_total",
				Help: "Search cache lookups by result (hit, miss)",
			}, []string{"result"}),

			SignatureFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "soundcrate_signature_failures_total",
				Help: "Total number of failed signature verifications",
			}),
			ExpiredRequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "soundcrate_expired_requests_total",
				Help: "Total number of requests with expired timestamps",
			}),

			CircuitBreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "soundcrate_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			}, []string{"backend"}),

			HealthStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "soundcrate_health_status",
				Help: "Health status by component (1=healthy, 0=unhealthy)",
			}, []string{"component"}),
			HealthChecksFailed: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "soundcrate_health_checks_failed_total",
				Help: "Total number of failed health checks by component",
			}, []string{"component"}),

			MemoryGauge: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "soundcrate_memory_heap_alloc_bytes",
				Help: "Current heap allocation in bytes",
			}),
			GoroutinesGauge: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "soundcrate_goroutines",
				Help: "Number of goroutines",
			}),
		}
	})

	return defaultMetrics
}

// StartRuntimeMetricsCollector starts a goroutine that updates runtime metrics
func (m *Metrics) StartRuntimeMetricsCollector() {
	go func() {
		for {
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			m.MemoryGauge.Set(float64(mem.HeapAlloc))
			m.GoroutinesGauge.Set(float64(runtime.NumGoroutine()))
			time.Sleep(10 * time.Second)
		}
	}()
}
