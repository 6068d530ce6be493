// Package stats exposes non-fatal render/build error counters as
// Prometheus metrics: render-path faults never panic or propagate, they
// are only ever reported via counters.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Counters groups every non-fatal fault counter the core increments. A
// fresh Counters is created per Player so that multiple player instances
// never share metric state.
type Counters struct {
	PoolExhausted      prometheus.Counter
	MalformedParameter prometheus.Counter
	InvalidTimestamp   prometheus.Counter
	UnknownKey         prometheus.Counter
	GraphCycle         prometheus.Counter

	ActiveVoices prometheus.Gauge
}

// New creates a Counters registered under the given registry. Passing a
// fresh prometheus.NewRegistry() per Player keeps instances independent;
// passing prometheus.DefaultRegisterer is fine for a single-process host.
func New(reg prometheus.Registerer, playerLabel string) *Counters {
	constLabels := prometheus.Labels{"player": playerLabel}

	c := &Counters{
		PoolExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "kunquat",
			Subsystem:   "voice",
			Name:        "pool_exhausted_total",
			Help:        "NoteOn events dropped because the voice pool was fully occupied by foreground voices.",
			ConstLabels: constLabels,
		}),
		MalformedParameter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "kunquat",
			Subsystem:   "paramstore",
			Name:        "malformed_parameter_total",
			Help:        "Parameter values rejected for failing type/range validation.",
			ConstLabels: constLabels,
		}),
		InvalidTimestamp: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "kunquat",
			Subsystem:   "event",
			Name:        "invalid_timestamp_total",
			Help:        "Events rejected for carrying an out-of-range timestamp remainder.",
			ConstLabels: constLabels,
		}),
		UnknownKey: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "kunquat",
			Subsystem:   "paramstore",
			Name:        "unknown_key_total",
			Help:        "Parameter paths that matched no processor's registered key pattern (not an error, forward compatibility).",
			ConstLabels: constLabels,
		}),
		GraphCycle: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "kunquat",
			Subsystem:   "graph",
			Name:        "cycle_detected_total",
			Help:        "Composition builds aborted due to a connection graph cycle.",
			ConstLabels: constLabels,
		}),
		ActiveVoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "kunquat",
			Subsystem:   "voice",
			Name:        "active",
			Help:        "Current count of non-Inactive voices in the pool.",
			ConstLabels: constLabels,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.PoolExhausted,
			c.MalformedParameter,
			c.InvalidTimestamp,
			c.UnknownKey,
			c.GraphCycle,
			c.ActiveVoices,
		)
	}

	return c
}
