package monitoring

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "restaunax"

// Module owns a Prometheus registry, the in-process summary counters and the health probes.
type Module struct {
	registry *prometheus.Registry
	metrics  *metricSet
	stats    *statStore
	health   *HealthManager
}

type moduleOptions struct {
	namespace string
	runtime   bool
}

type Option func(*moduleOptions)

// WithNamespace prefixes every application metric. Empty keeps "restaunax".
func WithNamespace(namespace string) Option {
	return func(o *moduleOptions) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithoutRuntimeCollectors leaves the Go runtime and process collectors off the registry.
func WithoutRuntimeCollectors() Option {
	return func(o *moduleOptions) { o.runtime = false }
}

func NewModule(opts ...Option) (*Module, error) {
	o := moduleOptions{namespace: defaultNamespace, runtime: true}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	if o.runtime {
		for _, c := range []prometheus.Collector{
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		} {
			if err := registry.Register(c); err != nil {
				return nil, fmt.Errorf("monitoring: register runtime collector: %w", err)
			}
		}
	}

	return &Module{
		registry: registry,
		metrics:  newMetricSet(registry, o.namespace),
		stats:    &statStore{},
		health:   NewHealthManager(),
	}, nil
}

// Handler serves the module's registry in the Prometheus exposition format.
func (m *Module) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	}))
}

func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

func (m *Module) Summary() Summary {
	if m == nil {
		return Summary{}
	}
	return m.stats.summary()
}

var current atomic.Pointer[Module]

// SetModule installs module as the target of the package-level Record helpers. Nil is ignored.
func SetModule(module *Module) {
	if module != nil {
		current.Store(module)
	}
}
