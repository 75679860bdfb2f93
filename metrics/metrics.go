// Package metrics exposes routing activity as Prometheus counters.
package metrics

import (
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saylorsolutions/typebus/router"
	"reflect"
)

const namespace = "typebus"

var _ router.Observer = (*Metrics)(nil)

// Metrics is a [router.Observer] that counts routing activity, labelled by router identifier and event type.
// One Metrics may be shared by any number of routers.
type Metrics struct {
	posted    *prometheus.CounterVec
	delivered *prometheus.CounterVec
	dead      *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// New creates a [Metrics] and registers its collectors with reg.
// If the collectors were already registered with reg, then the existing collectors are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registerer", router.ErrInvalidArgument)
	}
	var (
		m   Metrics
		err error
	)
	if m.posted, err = register(reg, "events_posted_total", "Number of events posted to a router."); err != nil {
		return nil, err
	}
	if m.delivered, err = register(reg, "deliveries_total", "Number of times a handler was called with an event."); err != nil {
		return nil, err
	}
	if m.dead, err = register(reg, "dead_events_total", "Number of posted events that matched no handlers."); err != nil {
		return nil, err
	}
	if m.failed, err = register(reg, "handler_failures_total", "Number of errors returned from handlers and producers."); err != nil {
		return nil, err
	}
	return &m, nil
}

func register(reg prometheus.Registerer, name, help string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"router", "event_type"})
	if err := reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register %s_%s: %w", namespace, name, err)
	}
	return vec, nil
}

func (m *Metrics) EventPosted(router string, eventType reflect.Type) {
	m.posted.WithLabelValues(router, eventType.String()).Inc()
}

func (m *Metrics) EventDelivered(router string, eventType reflect.Type) {
	m.delivered.WithLabelValues(router, eventType.String()).Inc()
}

func (m *Metrics) EventDead(router string, eventType reflect.Type) {
	m.dead.WithLabelValues(router, eventType.String()).Inc()
}

func (m *Metrics) HandlerFailed(router string, eventType reflect.Type) {
	m.failed.WithLabelValues(router, eventType.String()).Inc()
}

// Posted returns the collector counting posted events.
func (m *Metrics) Posted() *prometheus.CounterVec {
	return m.posted
}

// Delivered returns the collector counting deliveries to handlers.
func (m *Metrics) Delivered() *prometheus.CounterVec {
	return m.delivered
}

// Dead returns the collector counting dead events.
func (m *Metrics) Dead() *prometheus.CounterVec {
	return m.dead
}

// Failed returns the collector counting handler and producer failures.
func (m *Metrics) Failed() *prometheus.CounterVec {
	return m.failed
}
