package metrics

import (
	"strings"
	"testing"

	"github.com/dnp3core/godnp3/pkg/eventbuffer"
	"github.com/dnp3core/godnp3/pkg/master"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectReportsEventBufferOccupancy(t *testing.T) {
	c := NewCollector("dnp3")
	buf := eventbuffer.New(map[eventbuffer.Class]int{eventbuffer.Class1: 2})
	buf.Update(1, eventbuffer.Class1, eventbuffer.Value{Group: 2, Variation: 1, Int: 1})
	c.AddEventBuffer("outstation1", buf)

	expected := `
# HELP dnp3_event_buffer_size Buffered event count.
# TYPE dnp3_event_buffer_size gauge
dnp3_event_buffer_size{class="class1",instance="outstation1"} 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "dnp3_event_buffer_size")
	require.NoError(t, err)
}

func TestCollectReportsSchedulerTaskStates(t *testing.T) {
	c := NewCollector("dnp3")
	sched := master.NewScheduler()
	sched.AddTask(&master.Task{Name: "t1"})
	c.AddScheduler("master1", sched)

	expected := `
# HELP dnp3_scheduler_tasks Scheduler tasks currently in a given state.
# TYPE dnp3_scheduler_tasks gauge
dnp3_scheduler_tasks{instance="master1",state="disabled"} 0
dnp3_scheduler_tasks{instance="master1",state="idle"} 1
dnp3_scheduler_tasks{instance="master1",state="pending"} 0
dnp3_scheduler_tasks{instance="master1",state="running"} 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "dnp3_scheduler_tasks")
	require.NoError(t, err)
}

func TestCountersAccumulate(t *testing.T) {
	c := NewCollector("dnp3")
	c.IncLinkRetry()
	c.IncLinkRetry()
	c.IncUnsolConfirm()

	expected := `
# HELP dnp3_link_retries_total Cumulative link-layer frame retries.
# TYPE dnp3_link_retries_total counter
dnp3_link_retries_total 2
# HELP dnp3_unsolicited_confirms_total Cumulative confirmed unsolicited responses.
# TYPE dnp3_unsolicited_confirms_total counter
dnp3_unsolicited_confirms_total 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "dnp3_link_retries_total", "dnp3_unsolicited_confirms_total")
	require.NoError(t, err)
}
