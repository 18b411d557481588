package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PrometheusConfig configures the Prometheus collector.
type PrometheusConfig struct {
	// Namespace prefixes all metric names
	Namespace string

	// Registry is the Prometheus registry to use (nil = new registry)
	Registry *prometheus.Registry

	// IncludeRuntime registers the Go runtime and process collectors on a new registry
	IncludeRuntime bool

	// RegisterDefaultMetrics registers every definition of Definitions()
	RegisterDefaultMetrics bool
}

// series is one registered metric family.
type series struct {
	def       MetricDefinition
	counter   *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// PrometheusCollector implements Collector on a Prometheus registry.
// Only registered definitions are recorded; observations for other names
// and label sets that do not match the definition are dropped, so a
// metrics mistake never fails a validation.
type PrometheusCollector struct {
	mu        sync.RWMutex
	registry  *prometheus.Registry
	namespace string
	series    map[string]*series
}

// NewPrometheusCollector creates a collector. A nil cfg is an empty config.
func NewPrometheusCollector(cfg *PrometheusConfig) *PrometheusCollector {
	if cfg == nil {
		cfg = &PrometheusConfig{}
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		if cfg.IncludeRuntime {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
	}

	c := &PrometheusCollector{
		registry:  registry,
		namespace: cfg.Namespace,
		series:    make(map[string]*series),
	}
	if cfg.RegisterDefaultMetrics {
		for _, def := range Definitions() {
			_ = c.Register(def)
		}
	}
	return c
}

// Register adds def to the registry. Registering a name twice is a no-op.
func (c *PrometheusCollector) Register(def MetricDefinition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.series[def.Name]; ok {
		return nil
	}

	s := &series{def: def}
	var vec prometheus.Collector
	switch def.Type {
	case MetricTypeCounter:
		s.counter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      def.Name,
			Help:      def.Help,
		}, def.Labels)
		vec = s.counter
	case MetricTypeHistogram:
		buckets := def.Buckets
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}
		s.histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      def.Name,
			Help:      def.Help,
			Buckets:   buckets,
		}, def.Labels)
		vec = s.histogram
	default:
		return fmt.Errorf("metric %s: unsupported type %q", def.Name, def.Type)
	}

	if err := c.registry.Register(vec); err != nil {
		return fmt.Errorf("metric %s: %w", def.Name, err)
	}
	c.series[def.Name] = s
	return nil
}

func (c *PrometheusCollector) lookup(name string) *series {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.series[name]
}

func (c *PrometheusCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *PrometheusCollector) CounterAdd(name string, value float64, labels ...string) {
	s := c.lookup(name)
	if s == nil || s.counter == nil {
		return
	}
	if counter, err := s.counter.GetMetricWith(labelMap(labels)); err == nil {
		counter.Add(value)
	}
}

func (c *PrometheusCollector) HistogramObserve(name string, value float64, labels ...string) {
	s := c.lookup(name)
	if s == nil || s.histogram == nil {
		return
	}
	if observer, err := s.histogram.GetMetricWith(labelMap(labels)); err == nil {
		observer.Observe(value)
	}
}

// Reset drops every recorded series. Registrations are kept.
func (c *PrometheusCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.series {
		if s.counter != nil {
			s.counter.Reset()
		}
		if s.histogram != nil {
			s.histogram.Reset()
		}
	}
}

// Registry returns the underlying Prometheus registry.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the registry in the text exposition format to path,
// for pickup by the node exporter textfile collector.
func (c *PrometheusCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// labelMap turns alternating name/value pairs into prometheus.Labels.
// A trailing name without a value is ignored.
func labelMap(pairs []string) prometheus.Labels {
	labels := make(prometheus.Labels, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		labels[pairs[i]] = pairs[i+1]
	}
	return labels
}

var _ Collector = (*PrometheusCollector)(nil)
