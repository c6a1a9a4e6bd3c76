package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(graphMutations.WithLabelValues("create"))
	RecordMutation("create")
	assert.Equal(t, before+1, testutil.ToFloat64(graphMutations.WithLabelValues("create")))

	before = testutil.ToFloat64(toolFailures.WithLabelValues("edit_task_node", "REJECTED"))
	RecordToolFailure("edit_task_node", "REJECTED")
	assert.Equal(t, before+1, testutil.ToFloat64(toolFailures.WithLabelValues("edit_task_node", "REJECTED")))

	before = testutil.ToFloat64(streamEvents.WithLabelValues("done"))
	RecordStreamEvent("done")
	assert.Equal(t, before+1, testutil.ToFloat64(streamEvents.WithLabelValues("done")))
}

func TestActiveStreams(t *testing.T) {
	before := testutil.ToFloat64(activeStreams)
	done := StreamStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(activeStreams))
	done()
	assert.Equal(t, before, testutil.ToFloat64(activeStreams))
}

func TestObserveTurn(t *testing.T) {
	ObserveTurn(time.Second, nil)
	ObserveTurn(time.Second, errors.New("boom"))
	assert.Equal(t, 2, testutil.CollectAndCount(turnDuration))
}
