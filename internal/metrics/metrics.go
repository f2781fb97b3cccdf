// Package metrics exports study and inference counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mentalytics"

// Recorder implements the metrics hooks of the study and chat services. All
// methods are safe on a nil receiver.
type Recorder struct {
	transitions *prometheus.CounterVec
	records     *prometheus.CounterVec
	inference   *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg, or on the default registerer
// when reg is nil. Collectors already registered are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Wizard step changes.",
		}, []string{"from", "to"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Study records by name and outcome.",
		}, []string{"name", "outcome"}),
		inference: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Latency of local model calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"outcome"}),
	}

	var err error
	if r.transitions, err = register(reg, r.transitions); err != nil {
		return nil, err
	}
	if r.records, err = register(reg, r.records); err != nil {
		return nil, err
	}
	if r.inference, err = register(reg, r.inference); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (r *Recorder) ObserveTransition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Recorder) ObserveRecord(name, outcome string) {
	if r == nil {
		return
	}
	r.records.WithLabelValues(name, outcome).Inc()
}

// ObserveInference records a model call. Calls that never ran are counted
// with a zero duration.
func (r *Recorder) ObserveInference(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.inference.WithLabelValues(outcome).Observe(d.Seconds())
}
