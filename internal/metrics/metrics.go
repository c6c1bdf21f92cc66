// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_pages_total",
			Help: "Pages fetched, labeled by site and outcome.",
		},
		[]string{"site", "outcome"},
	)
	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_fetch_duration_seconds",
			Help:    "Fetch latency per site.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)
	entitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_entities_total",
			Help: "Candidate entities extracted, labeled by method.",
		},
		[]string{"method"},
	)
	validationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_validation_total",
			Help: "Validation outcomes (accepted or rejected).",
		},
		[]string{"outcome"},
	)
	dedupMergesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_dedup_merges_total",
			Help: "Entity pairs merged by the deduplicator.",
		},
	)
	complianceSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_compliance_skips_total",
			Help: "URLs skipped because robots.txt denied them.",
		},
		[]string{"site"},
	)
	throttleDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_throttle_delay_seconds",
			Help:    "Per-domain politeness wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_jobs_total",
			Help: "Background jobs by terminal status.",
		},
		[]string{"status"},
	)
	activeJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawler_active_jobs",
			Help: "Jobs currently running.",
		},
	)
)

// SanitizeSite extracts a lowercase hostname for use as a label value.
// It returns "unknown" when the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one fetch attempt outcome.
func ObserveFetch(site, outcome string, duration time.Duration) {
	s := SanitizeSite(site)
	pagesTotal.WithLabelValues(s, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(s).Observe(duration.Seconds())
}

// ObserveEntities counts extracted entities for a method.
func ObserveEntities(method string, n int) {
	if n > 0 {
		entitiesTotal.WithLabelValues(method).Add(float64(n))
	}
}

// ObserveValidation records an accepted or rejected entity.
func ObserveValidation(outcome string) {
	validationTotal.WithLabelValues(outcome).Inc()
}

// ObserveMerge counts one dedup merge.
func ObserveMerge() {
	dedupMergesTotal.Inc()
}

// ObserveComplianceSkip counts a robots.txt denial.
func ObserveComplianceSkip(site string) {
	complianceSkipsTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// ObserveThrottle records a politeness wait.
func ObserveThrottle(site string, d time.Duration) {
	if d > time.Millisecond {
		throttleDelaySeconds.WithLabelValues(SanitizeSite(site)).Observe(d.Seconds())
	}
}

// ObserveJob counts a job reaching the given status.
func ObserveJob(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}

// IncActiveJobs increments the running-jobs gauge.
func IncActiveJobs() { activeJobs.Inc() }

// DecActiveJobs decrements the running-jobs gauge.
func DecActiveJobs() { activeJobs.Dec() }
