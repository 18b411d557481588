// Package metrics records how documents move through the artifact SDK:
// validations accepted and rejected, envelopes sealed and opened, payload
// sizes per encoding. Collection is pluggable through the Collector
// interface; the process default is a no-op.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Collector receives counter and histogram observations.
// Labels are passed as alternating name/value pairs.
type Collector interface {
	CounterInc(name string, labels ...string)
	CounterAdd(name string, value float64, labels ...string)

	HistogramObserve(name string, value float64, labels ...string)

	// Reset clears all metrics (for testing)
	Reset()
}

// MetricType represents the type of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricDefinition defines a metric with its metadata.
type MetricDefinition struct {
	Name    string     `json:"name"`
	Type    MetricType `json:"type"`
	Help    string     `json:"help"`
	Labels  []string   `json:"labels,omitempty"`
	Buckets []float64  `json:"buckets,omitempty"` // For histograms
}

// Label values used with the definitions below.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"

	OperationSeal = "seal"
	OperationOpen = "open"

	StatusOK    = "ok"
	StatusError = "error"
)

var (
	ValidationsTotal = MetricDefinition{
		Name:   "artifact_validations_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of document validations by outcome",
		Labels: []string{"kind", "result"},
	}
	ValidationDuration = MetricDefinition{
		Name:    "artifact_validation_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of document validation in seconds",
		Labels:  []string{"kind"},
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}
	EnvelopesTotal = MetricDefinition{
		Name:   "artifact_envelopes_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of envelope operations",
		Labels: []string{"operation", "status"},
	}
	PayloadBytes = MetricDefinition{
		Name:    "artifact_payload_bytes",
		Type:    MetricTypeHistogram,
		Help:    "Size of sealed envelope payloads in bytes",
		Labels:  []string{"encoding", "compression"},
		Buckets: []float64{128, 512, 1024, 4096, 16384, 65536, 262144},
	}
)

// Definitions lists every standard metric, in registration order.
func Definitions() []MetricDefinition {
	return []MetricDefinition{ValidationsTotal, ValidationDuration, EnvelopesTotal, PayloadBytes}
}

// NopCollector discards all observations.
type NopCollector struct{}

func (c *NopCollector) CounterInc(name string, labels ...string)                      {}
func (c *NopCollector) CounterAdd(name string, value float64, labels ...string)       {}
func (c *NopCollector) HistogramObserve(name string, value float64, labels ...string) {}
func (c *NopCollector) Reset()                                                        {}

// InMemoryCollector keeps observations in memory, keyed by name and label
// set. Label order does not matter: ("a","1","b","2") and ("b","2","a","1")
// address the same series.
type InMemoryCollector struct {
	mu         sync.RWMutex
	counters   map[string]float64
	histograms map[string][]float64
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// seriesKey renders name{k=v,...} with the pairs sorted by label name.
func seriesKey(name string, labels []string) string {
	pairs := make([]string, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		pairs = append(pairs, labels[i]+"="+labels[i+1])
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func (c *InMemoryCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *InMemoryCollector) CounterAdd(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[seriesKey(name, labels)] += value
}

func (c *InMemoryCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := seriesKey(name, labels)
	c.histograms[key] = append(c.histograms[key], value)
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = make(map[string]float64)
	c.histograms = make(map[string][]float64)
}

// GetCounter returns the value of a counter series.
func (c *InMemoryCollector) GetCounter(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[seriesKey(name, labels)]
}

// GetHistogram returns a copy of the observations of a histogram series.
func (c *InMemoryCollector) GetHistogram(name string, labels ...string) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]float64(nil), c.histograms[seriesKey(name, labels)]...)
}

// CounterKeys returns the sorted series keys of every counter recorded so far.
func (c *InMemoryCollector) CounterKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.counters))
	for k := range c.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Timer measures one operation into a histogram.
type Timer struct {
	start     time.Time
	collector Collector
	name      string
	labels    []string
}

// NewTimer starts a timer recording to the named histogram of collector.
func NewTimer(collector Collector, name string, labels ...string) *Timer {
	return &Timer{
		start:     time.Now(),
		collector: collector,
		name:      name,
		labels:    labels,
	}
}

// ObserveDuration records the seconds elapsed since the timer started.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	t.collector.HistogramObserve(t.name, d.Seconds(), t.labels...)
	return d
}

var (
	defaultCollector   Collector = &NopCollector{}
	defaultCollectorMu sync.RWMutex
)

// SetDefaultCollector sets the process-wide collector. Passing nil
// restores the no-op collector.
func SetDefaultCollector(collector Collector) {
	defaultCollectorMu.Lock()
	defer defaultCollectorMu.Unlock()
	if collector == nil {
		collector = &NopCollector{}
	}
	defaultCollector = collector
}

// GetDefaultCollector returns the process-wide collector.
func GetDefaultCollector() Collector {
	defaultCollectorMu.RLock()
	defer defaultCollectorMu.RUnlock()
	return defaultCollector
}

var (
	_ Collector = (*NopCollector)(nil)
	_ Collector = (*InMemoryCollector)(nil)
)
