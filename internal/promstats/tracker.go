// Package promstats exports bool64/stats metrics to Prometheus.
package promstats

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/bool64/stats"
	"github.com/prometheus/client_golang/prometheus"
)

var _ stats.Tracker = &Tracker{}

// Tracker registers a counter vector on first Add and a gauge vector on first Set of a metric name.
//
// Label names are fixed by the first call, later calls with other label names are ignored.
type Tracker struct {
	// Namespace is prepended to metric names.
	Namespace string

	// Registerer is prometheus.DefaultRegisterer by default.
	Registerer prometheus.Registerer

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
}

// New creates tracker.
func New(reg prometheus.Registerer, namespace string) *Tracker {
	return &Tracker{Namespace: namespace, Registerer: reg}
}

func labels(labelsAndValues []string) prometheus.Labels {
	l := make(prometheus.Labels, len(labelsAndValues)/2)

	for i := 1; i < len(labelsAndValues); i += 2 {
		l[labelsAndValues[i-1]] = labelsAndValues[i]
	}

	return l
}

func labelNames(l prometheus.Labels) []string {
	names := make([]string, 0, len(l))
	for k := range l {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

func (t *Tracker) registerer() prometheus.Registerer {
	if t.Registerer == nil {
		return prometheus.DefaultRegisterer
	}

	return t.Registerer
}

func (t *Tracker) fqName(name string) string {
	return prometheus.BuildFQName(t.Namespace, "", strings.ReplaceAll(name, ".", "_"))
}

// Add increments counter, negative increments are ignored.
func (t *Tracker) Add(_ context.Context, name string, increment float64, labelsAndValues ...string) {
	if increment < 0 {
		return
	}

	l := labels(labelsAndValues)

	t.mu.Lock()
	defer t.mu.Unlock()

	vec, ok := t.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: t.fqName(name),
			Help: name,
		}, labelNames(l))

		if err := t.registerer().Register(vec); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if !errors.As(err, &are) {
				return
			}

			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				vec = existing
			}
		}

		if t.counters == nil {
			t.counters = make(map[string]*prometheus.CounterVec)
		}

		t.counters[name] = vec
	}

	if c, err := vec.GetMetricWith(l); err == nil {
		c.Add(increment)
	}
}

// Set updates gauge.
func (t *Tracker) Set(_ context.Context, name string, absolute float64, labelsAndValues ...string) {
	l := labels(labelsAndValues)

	t.mu.Lock()
	defer t.mu.Unlock()

	vec, ok := t.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: t.fqName(name),
			Help: name,
		}, labelNames(l))

		if err := t.registerer().Register(vec); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if !errors.As(err, &are) {
				return
			}

			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				vec = existing
			}
		}

		if t.gauges == nil {
			t.gauges = make(map[string]*prometheus.GaugeVec)
		}

		t.gauges[name] = vec
	}

	if g, err := vec.GetMetricWith(l); err == nil {
		g.Set(absolute)
	}
}
