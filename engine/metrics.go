package engine

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a prometheus.Collector exposing the six gauges/counters/
// histograms a running session needs for operational visibility:
// in-flight commands, retries, timeouts, queue depth, command latency and
// spontaneous-event volume broken down by origin. It is safe for concurrent
// use and updated directly by Session.Exec and the reader/writer goroutines.
type Metrics struct {
	gate  *Gate
	queue *TxQueue

	retries  uint64
	timeouts uint64

	spontaneousMu     sync.Mutex
	spontaneousByOrig map[string]uint64

	duration prometheus.Histogram

	commandsInFlight *prometheus.Desc
	retriesTotal     *prometheus.Desc
	timeoutsTotal    *prometheus.Desc
	queueDepth       *prometheus.Desc
	spontaneousTotal *prometheus.Desc
}

// NewMetrics wires a Metrics collector to a session's Gate and TxQueue so
// Describe/Collect can read their live state without extra bookkeeping.
func NewMetrics(namespace string, gate *Gate, queue *TxQueue) *Metrics {
	if namespace == "" {
		namespace = "primeadrv"
	}
	return &Metrics{
		gate:              gate,
		queue:             queue,
		spontaneousByOrig: make(map[string]uint64),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from command enqueue to reply delivery.",
			Buckets:   prometheus.DefBuckets,
		}),
		commandsInFlight: prometheus.NewDesc(
			namespace+"_commands_inflight",
			"Whether a command is currently occupying the one-in-flight gate (0 or 1).",
			nil, nil,
		),
		retriesTotal: prometheus.NewDesc(
			namespace+"_command_retries_total",
			"Total number of command retries issued after a transient error.",
			nil, nil,
		),
		timeoutsTotal: prometheus.NewDesc(
			namespace+"_command_timeouts_total",
			"Total number of command attempts that timed out, including attempts that were then retried.",
			nil, nil,
		),
		queueDepth: prometheus.NewDesc(
			namespace+"_txqueue_depth",
			"Current backlog of the command-class transmit queue.",
			nil, nil,
		),
		spontaneousTotal: prometheus.NewDesc(
			namespace+"_spontaneous_events_total",
			"Total number of spontaneous (device-initiated) events observed, by origin.",
			[]string{"origin"}, nil,
		),
	}
}

// ObserveDuration records the elapsed time of a completed command.
func (m *Metrics) ObserveDuration(seconds float64) {
	m.duration.Observe(seconds)
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() { atomic.AddUint64(&m.retries, 1) }

// IncTimeouts increments the timed-out-attempt counter.
func (m *Metrics) IncTimeouts() { atomic.AddUint64(&m.timeouts, 1) }

// IncSpontaneous increments the spontaneous-event counter for the frame's
// origin (0 for the base unit, 1-5 for a module).
func (m *Metrics) IncSpontaneous(origin int) {
	key := strconv.Itoa(origin)
	m.spontaneousMu.Lock()
	m.spontaneousByOrig[key]++
	m.spontaneousMu.Unlock()
}

// SpontaneousCount reports the current spontaneous-event count for origin,
// exposed for tests; Collect is the source of truth for scraping.
func (m *Metrics) SpontaneousCount(origin int) uint64 {
	key := strconv.Itoa(origin)
	m.spontaneousMu.Lock()
	defer m.spontaneousMu.Unlock()
	return m.spontaneousByOrig[key]
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.commandsInFlight
	ch <- m.retriesTotal
	ch <- m.timeoutsTotal
	ch <- m.queueDepth
	ch <- m.spontaneousTotal
	m.duration.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	inFlight := 0.0
	if m.gate.InFlight() {
		inFlight = 1.0
	}
	ch <- prometheus.MustNewConstMetric(m.commandsInFlight, prometheus.GaugeValue, inFlight)
	ch <- prometheus.MustNewConstMetric(m.retriesTotal, prometheus.CounterValue, float64(atomic.LoadUint64(&m.retries)))
	ch <- prometheus.MustNewConstMetric(m.timeoutsTotal, prometheus.CounterValue, float64(atomic.LoadUint64(&m.timeouts)))
	ch <- prometheus.MustNewConstMetric(m.queueDepth, prometheus.GaugeValue, float64(m.queue.CommandDepth()))

	m.spontaneousMu.Lock()
	counts := make(map[string]uint64, len(m.spontaneousByOrig))
	for origin, n := range m.spontaneousByOrig {
		counts[origin] = n
	}
	m.spontaneousMu.Unlock()
	for origin, n := range counts {
		ch <- prometheus.MustNewConstMetric(m.spontaneousTotal, prometheus.CounterValue, float64(n), origin)
	}

	m.duration.Collect(ch)
}
