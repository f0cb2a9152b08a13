package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSubmissionCounts(t *testing.T) {
	before := testutil.ToFloat64(submissions.WithLabelValues("forced", "failure"))
	Submission("forced", false, 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(submissions.WithLabelValues("forced", "failure")))
}

func TestGateDecisionCounts(t *testing.T) {
	before := testutil.ToFloat64(gateDecisions.WithLabelValues("login"))
	GateDecision("login")
	GateDecision("login")
	assert.Equal(t, before+2, testutil.ToFloat64(gateDecisions.WithLabelValues("login")))
}
