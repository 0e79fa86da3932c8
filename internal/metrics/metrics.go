// Package metrics exposes grocery-list counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application counters. It implements grocery.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	malformedBlobs prometheus.Counter
	droppedRecords *prometheus.CounterVec
	listsBuilt     *prometheus.CounterVec
	toggles        *prometheus.CounterVec
}

// New creates the counters on a fresh registry, along with the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		malformedBlobs: factory.NewCounter(prometheus.CounterOpts{
			Name: "bitepath_ingredient_blobs_malformed_total",
			Help: "Meal ingredient blobs that could not be decoded",
		}),
		droppedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitepath_ingredient_records_dropped_total",
			Help: "Single ingredient records skipped while parsing",
		}, []string{"reason"}),
		listsBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitepath_grocery_lists_built_total",
			Help: "Grocery lists computed",
		}, []string{"view"}),
		toggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitepath_struck_toggles_total",
			Help: "Strike-state toggles",
		}, []string{"struck"}),
	}
}

func (m *Metrics) MalformedBlob() {
	m.malformedBlobs.Inc()
}

func (m *Metrics) DroppedRecord(reason string) {
	m.droppedRecords.WithLabelValues(reason).Inc()
}

// ListBuilt counts one computed list of the given view.
func (m *Metrics) ListBuilt(view string) {
	m.listsBuilt.WithLabelValues(view).Inc()
}

// Toggled counts one toggle that left the item in the given state.
func (m *Metrics) Toggled(struck bool) {
	m.toggles.WithLabelValues(strconv.FormatBool(struck)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
