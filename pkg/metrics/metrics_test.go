package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDeployOutcomesTotalIncrements(t *testing.T) {
	before := testutil.ToFloat64(DeployOutcomesTotal.WithLabelValues("completed"))
	DeployOutcomesTotal.WithLabelValues("completed").Inc()
	after := testutil.ToFloat64(DeployOutcomesTotal.WithLabelValues("completed"))
	assert.Equal(t, before+1, after)
}

func TestTaskTransitionsTotalByStatus(t *testing.T) {
	before := testutil.ToFloat64(TaskTransitionsTotal.WithLabelValues("running"))
	TaskTransitionsTotal.WithLabelValues("running").Inc()
	after := testutil.ToFloat64(TaskTransitionsTotal.WithLabelValues("running"))
	assert.Equal(t, before+1, after)
}

func TestPrivilegedKeyGateTotalByGateAndOutcome(t *testing.T) {
	before := testutil.ToFloat64(PrivilegedKeyGateTotal.WithLabelValues("nonce", "denied"))
	PrivilegedKeyGateTotal.WithLabelValues("nonce", "denied").Inc()
	after := testutil.ToFloat64(PrivilegedKeyGateTotal.WithLabelValues("nonce", "denied"))
	assert.Equal(t, before+1, after)
}

func TestDeployDurationObserveKeepsSingleCollector(t *testing.T) {
	countBefore := testutil.CollectAndCount(DeployDuration)
	DeployDuration.Observe(0.25)
	countAfter := testutil.CollectAndCount(DeployDuration)
	assert.Equal(t, countBefore, countAfter) // histogram is a single collector, sample count lives in its buckets
}
