package observability

import (
	"context"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes simulation activity as Prometheus collectors.
type Metrics struct {
	Sent       prometheus.Counter
	Delivered  prometheus.Counter
	Dropped    prometheus.Counter
	Transit    prometheus.Histogram
	Status     *prometheus.CounterVec
	HookErrors *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "distsim_messages_sent_total",
			Help: "Total number of messages put on a channel",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "distsim_messages_delivered_total",
			Help: "Total number of messages handed to a live process",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "distsim_messages_dropped_total",
			Help: "Total number of messages that reached a finished or missing process",
		}),
		Transit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "distsim_message_transit_units",
			Help:    "Simulated transit time of sent messages, in time units",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		Status: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "distsim_process_status_total",
			Help: "Process status transitions",
		}, []string{"status"}),
		HookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "distsim_hook_errors_total",
			Help: "Failed hook invocations",
		}, []string{"hook"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Sent, m.Delivered, m.Dropped, m.Transit, m.Status, m.HookErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMessageSent: func(_ context.Context, e *domain.MessageEvent) {
			m.Sent.Inc()
			m.Transit.Observe(float64(e.Delay) / float64(domain.Unit))
		},
		OnMessageDelivered: func(context.Context, *domain.MessageEvent) {
			m.Delivered.Inc()
		},
		OnMessageDropped: func(context.Context, *domain.MessageEvent) {
			m.Dropped.Inc()
		},
		OnProcessStatus: func(_ context.Context, e *domain.ProcessEvent) {
			m.Status.WithLabelValues(string(e.Status)).Inc()
		},
		OnHookError: func(_ context.Context, e *domain.HookErrorEvent) {
			m.HookErrors.WithLabelValues(e.Err.Hook).Inc()
		},
	}
}
