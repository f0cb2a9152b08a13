// Package metrics exposes prometheus collectors for gate decisions and exam
// submissions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_gate_decisions_total",
		Help: "Access gate decisions by outcome.",
	}, []string{"outcome"})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_submissions_total",
		Help: "Exam submissions by trigger and result.",
	}, []string{"trigger", "result"})

	submitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portal_submit_duration_seconds",
		Help:    "Latency of submit calls to the school API.",
		Buckets: prometheus.DefBuckets,
	})

	activeAttempts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_active_attempts",
		Help: "Exam attempts currently mounted.",
	})
)

// GateDecision counts one access gate outcome ("render", "login", "unauthorized", "restricted").
func GateDecision(outcome string) {
	gateDecisions.WithLabelValues(outcome).Inc()
}

// Submission records one submit call.
func Submission(trigger string, ok bool, took time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	submissions.WithLabelValues(trigger, result).Inc()
	submitDuration.Observe(took.Seconds())
}

// AttemptMounted adjusts the mounted-attempts gauge by delta.
func AttemptMounted(delta int) {
	activeAttempts.Add(float64(delta))
}
