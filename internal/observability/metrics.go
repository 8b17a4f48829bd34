package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce                sync.Once
	questionsGradedTotal        *prometheus.CounterVec
	attemptsAggregatedTotal     *prometheus.CounterVec
	attemptPercentage           prometheus.Histogram
	certificatesIssuedTotal     prometheus.Counter
	certificateCollisionsTotal  prometheus.Counter
	progressRecomputationsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for engine
// observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		questionsGradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_questions_graded_total",
			Help: "Total number of question submissions auto-graded.",
		}, []string{"kind", "verdict"})

		attemptsAggregatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_attempts_aggregated_total",
			Help: "Total number of attempts aggregated into results.",
		}, []string{"passed"})

		attemptPercentage = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_attempt_percentage",
			Help:    "Distribution of aggregated attempt percentages.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		})

		certificatesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_certificates_issued_total",
			Help: "Total number of certificates issued.",
		})

		certificateCollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_certificate_collisions_total",
			Help: "Total number of certificate number collisions retried.",
		})

		progressRecomputationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_progress_recomputations_total",
			Help: "Total number of progress snapshot recomputations.",
		}, []string{"skill_level"})

		prometheus.MustRegister(
			questionsGradedTotal,
			attemptsAggregatedTotal,
			attemptPercentage,
			certificatesIssuedTotal,
			certificateCollisionsTotal,
			progressRecomputationsTotal,
		)
	})
}

// QuestionsGraded exposes the counter for graded questions.
func QuestionsGraded() *prometheus.CounterVec {
	RegisterMetrics()
	return questionsGradedTotal
}

// AttemptsAggregated exposes the counter for aggregated attempts.
func AttemptsAggregated() *prometheus.CounterVec {
	RegisterMetrics()
	return attemptsAggregatedTotal
}

// AttemptPercentage exposes the attempt percentage histogram.
func AttemptPercentage() prometheus.Histogram {
	RegisterMetrics()
	return attemptPercentage
}

// CertificatesIssued exposes the counter for issued certificates.
func CertificatesIssued() prometheus.Counter {
	RegisterMetrics()
	return certificatesIssuedTotal
}

// CertificateCollisions exposes the counter for retried collisions.
func CertificateCollisions() prometheus.Counter {
	RegisterMetrics()
	return certificateCollisionsTotal
}

// ProgressRecomputations exposes the counter for snapshot recomputations.
func ProgressRecomputations() *prometheus.CounterVec {
	RegisterMetrics()
	return progressRecomputationsTotal
}
