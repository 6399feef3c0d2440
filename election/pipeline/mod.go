// Package pipeline implements the mutation pipelines of the election client.
// Both the vote submission and the administrative mutations follow the same
// discipline: rule out locally what can be ruled out for free, simulate
// before committing, provision the cost estimate with a safety margin, and
// only then pay for a submission. A failed submission is never retried
// automatically since the ledger offers no idempotency key.
package pipeline

import (
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Cost estimates are scaled up by 20% and rounded up to the nearest whole
// unit to avoid under-provisioning due to estimation noise. The margin
// saturates instead of wrapping when the scaled estimate would overflow.
func withMargin(estimate uint64) uint64 {
	if estimate > (math.MaxUint64-9)/12 {
		return math.MaxUint64
	}

	return (estimate*12 + 9) / 10
}

var submissions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dvote_submissions_total",
		Help: "Number of ledger submissions by call method and outcome",
	},
	[]string{"method", "outcome"},
)

var metricsOnce sync.Once

func registerMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(submissions)
	})
}

func countSubmission(method string, err error) {
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}

	submissions.WithLabelValues(method, outcome).Inc()
}
