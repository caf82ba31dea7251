// Package metrics exposes stack state as Prometheus metrics. Like the
// teacher's pkg/exporter.TCPInfoCollector, it is a pull-model
// prometheus.Collector that reads live state out of the structures it
// was handed at construction time rather than having counters threaded
// through every call site; Collect() is the only place state is read.
package metrics

import (
	"sync/atomic"

	"github.com/dnp3core/godnp3/pkg/eventbuffer"
	"github.com/dnp3core/godnp3/pkg/master"
	"github.com/prometheus/client_golang/prometheus"
)

var classNames = map[eventbuffer.Class]string{
	eventbuffer.Class1: "class1",
	eventbuffer.Class2: "class2",
	eventbuffer.Class3: "class3",
}

var taskStateNames = map[master.TaskState]string{
	master.TaskIdle:     "idle",
	master.TaskPending:  "pending",
	master.TaskRunning:  "running",
	master.TaskDisabled: "disabled",
}

// Collector exposes event buffer occupancy/overflow and scheduler task
// state as gauges, plus cumulative counters for link retries and
// unsolicited confirms that a caller increments as they occur.
type Collector struct {
	prefix  string
	buffers map[string]*eventbuffer.Buffer
	scheds  map[string]*master.Scheduler

	linkRetries   atomic.Int64
	unsolConfirms atomic.Int64
	unsolFailures atomic.Int64

	eventSizeDesc     *prometheus.Desc
	eventOverflowDesc *prometheus.Desc
	taskStateDesc     *prometheus.Desc
	linkRetriesDesc   *prometheus.Desc
	unsolConfirmsDesc *prometheus.Desc
	unsolFailuresDesc *prometheus.Desc
}

// NewCollector builds an empty Collector; event buffers and schedulers
// are registered with AddEventBuffer/AddScheduler after construction,
// since an outstation or master may be created after metrics wiring.
func NewCollector(prefix string) *Collector {
	return &Collector{
		prefix:  prefix,
		buffers: make(map[string]*eventbuffer.Buffer),
		scheds:  make(map[string]*master.Scheduler),

		eventSizeDesc: prometheus.NewDesc(prefix+"_event_buffer_size", "Buffered event count.",
			[]string{"instance", "class"}, nil),
		eventOverflowDesc: prometheus.NewDesc(prefix+"_event_buffer_overflow", "1 if the class has dropped an event since its last clear.",
			[]string{"instance", "class"}, nil),
		taskStateDesc: prometheus.NewDesc(prefix+"_scheduler_tasks", "Scheduler tasks currently in a given state.",
			[]string{"instance", "state"}, nil),
		linkRetriesDesc: prometheus.NewDesc(prefix+"_link_retries_total", "Cumulative link-layer frame retries.", nil, nil),
		unsolConfirmsDesc: prometheus.NewDesc(prefix+"_unsolicited_confirms_total", "Cumulative confirmed unsolicited responses.", nil, nil),
		unsolFailuresDesc: prometheus.NewDesc(prefix+"_unsolicited_failures_total", "Cumulative unconfirmed/failed unsolicited responses.", nil, nil),
	}
}

// AddEventBuffer registers an outstation's event buffer under instance.
func (c *Collector) AddEventBuffer(instance string, b *eventbuffer.Buffer) {
	c.buffers[instance] = b
}

// AddScheduler registers a master's scheduler under instance.
func (c *Collector) AddScheduler(instance string, s *master.Scheduler) {
	c.scheds[instance] = s
}

// IncLinkRetry records one link-layer retry.
func (c *Collector) IncLinkRetry() { c.linkRetries.Add(1) }

// IncUnsolConfirm records one confirmed unsolicited response.
func (c *Collector) IncUnsolConfirm() { c.unsolConfirms.Add(1) }

// IncUnsolFailure records one unsolicited response that went unconfirmed.
func (c *Collector) IncUnsolFailure() { c.unsolFailures.Add(1) }

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.eventSizeDesc
	descs <- c.eventOverflowDesc
	descs <- c.taskStateDesc
	descs <- c.linkRetriesDesc
	descs <- c.unsolConfirmsDesc
	descs <- c.unsolFailuresDesc
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	for instance, b := range c.buffers {
		for class, name := range classNames {
			metrics <- prometheus.MustNewConstMetric(c.eventSizeDesc, prometheus.GaugeValue,
				float64(b.Size(class)), instance, name)
			metrics <- prometheus.MustNewConstMetric(c.eventOverflowDesc, prometheus.GaugeValue,
				boolToFloat(b.Overflow(class)), instance, name)
		}
	}

	for instance, s := range c.scheds {
		counts := make(map[master.TaskState]int)
		for _, t := range s.Tasks() {
			counts[t.State()]++
		}
		for state, name := range taskStateNames {
			metrics <- prometheus.MustNewConstMetric(c.taskStateDesc, prometheus.GaugeValue,
				float64(counts[state]), instance, name)
		}
	}

	metrics <- prometheus.MustNewConstMetric(c.linkRetriesDesc, prometheus.CounterValue, float64(c.linkRetries.Load()))
	metrics <- prometheus.MustNewConstMetric(c.unsolConfirmsDesc, prometheus.CounterValue, float64(c.unsolConfirms.Load()))
	metrics <- prometheus.MustNewConstMetric(c.unsolFailuresDesc, prometheus.CounterValue, float64(c.unsolFailures.Load()))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
