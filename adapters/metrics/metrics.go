// Package metrics provides Prometheus metrics collection for the module store.
package metrics

import (
	"strconv"
	"time"

	"github.com/artpar/modstore/core/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "modstore"

// Collector holds all Prometheus metrics and implements store.Observer.
type Collector struct {
	// Module metrics
	ModulesRegistered *prometheus.CounterVec

	// Mutation metrics
	MutationsTotal   *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec

	// Action metrics
	DispatchesTotal *prometheus.CounterVec
	ActionsInFlight prometheus.Gauge
	ActionDuration  *prometheus.HistogramVec

	// Getter metrics
	GetterEvaluations *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ModulesRegistered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modules_registered_total",
				Help:      "Total number of module registrations",
			},
			[]string{"hot"},
		),
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Total number of committed mutations",
			},
			[]string{"module", "mutation", "status"},
		),
		MutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "commit_duration_seconds",
				Help:      "Mutation duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"module"},
		),
		DispatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of dispatched actions",
			},
			[]string{"module", "action"},
		),
		ActionsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "actions_in_flight",
				Help:      "Number of actions currently running",
			},
		),
		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Action duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"module", "action", "status"},
		),
		GetterEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "getter_evaluations_total",
				Help:      "Total getter reads, by whether the memoised value was used",
			},
			[]string{"module", "getter", "cached"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ModuleRegistered counts a registration or hot replacement.
func (c *Collector) ModuleRegistered(_ string, hot bool) {
	c.ModulesRegistered.WithLabelValues(strconv.FormatBool(hot)).Inc()
}

// Committed records a mutation.
func (c *Collector) Committed(module, mutation string, d time.Duration, err error) {
	c.MutationsTotal.WithLabelValues(module, mutation, status(err)).Inc()
	c.MutationDuration.WithLabelValues(module).Observe(d.Seconds())
}

// Dispatched records an action start.
func (c *Collector) Dispatched(module, action string) {
	c.DispatchesTotal.WithLabelValues(module, action).Inc()
	c.ActionsInFlight.Inc()
}

// ActionFinished records an action result.
func (c *Collector) ActionFinished(module, action string, d time.Duration, err error) {
	c.ActionsInFlight.Dec()
	c.ActionDuration.WithLabelValues(module, action, status(err)).Observe(d.Seconds())
}

// GetterEvaluated records a getter read.
func (c *Collector) GetterEvaluated(module, getter string, cached bool) {
	c.GetterEvaluations.WithLabelValues(module, getter, strconv.FormatBool(cached)).Inc()
}

// ConfigReloaded records a config reload attempt.
func (c *Collector) ConfigReloaded(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ store.Observer = (*Collector)(nil)
