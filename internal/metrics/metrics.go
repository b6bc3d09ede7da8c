package metrics

import (
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "op_bracket"

// Engine holds the collectors for bracket operations. A nil *Engine records nothing.
type Engine struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	events     *prometheus.CounterVec
}

// NewEngine creates the collectors and registers them on reg.
func NewEngine(reg prometheus.Registerer) (*Engine, error) {
	e := &Engine{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by outcome; outcome is ok or an error kind.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of engine operations including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_state_retries_total",
			Help:      "Transactions retried after a concurrent write.",
		}, []string{"op"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published after commit.",
		}, []string{"topic"}),
	}
	for _, c := range []prometheus.Collector{e.operations, e.duration, e.retries, e.events} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ObserveOperation records one finished operation.
func (e *Engine) ObserveOperation(op string, took time.Duration, err error) {
	if e == nil {
		return
	}
	e.operations.WithLabelValues(op, Outcome(err)).Inc()
	e.duration.WithLabelValues(op).Observe(took.Seconds())
}

func (e *Engine) IncRetry(op string) {
	if e == nil {
		return
	}
	e.retries.WithLabelValues(op).Inc()
}

func (e *Engine) IncEvent(topic string) {
	if e == nil {
		return
	}
	e.events.WithLabelValues(topic).Inc()
}

// Outcome labels err by its kind; errors outside the taxonomy are "internal".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := bracket.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}
