// Package metrics exposes the controller's Prometheus instrumentation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all controller metrics.
type Registry struct {
	// Topology input
	EventsTotal *prometheus.CounterVec // by collection, op

	// Reconciliation
	ReconcilesTotal *prometheus.CounterVec // by outcome: "install", "skip", "clear"
	FanoutTotal     prometheus.Counter

	// ACL store
	ACLInstalls  prometheus.Counter
	ACLRemovals  prometheus.Counter
	SweepRemoved prometheus.Counter
	StoreErrors  prometheus.Counter

	// Gauges
	DomainsTracked prometheus.Gauge
	PortsTracked   prometheus.Gauge
	RulesInstalled prometheus.Gauge
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sixfence_topology_events_total",
				Help: "Topology change notifications processed",
			}, []string{"collection", "op"}),
			ReconcilesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sixfence_reconciles_total",
				Help: "Port reconciliations by outcome",
			}, []string{"outcome"}),
			FanoutTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sixfence_fanout_reconciles_total",
				Help: "Reconciliations triggered by domain-wide fan-out",
			}),
			ACLInstalls: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sixfence_acl_installs_total",
				Help: "ACLs installed into the store",
			}),
			ACLRemovals: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sixfence_acl_removals_total",
				Help: "ACLs removed from the store",
			}),
			SweepRemoved: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sixfence_sweep_removed_total",
				Help: "Stale ACLs removed by startup sweeps",
			}),
			StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sixfence_store_errors_total",
				Help: "ACL store write failures",
			}),
			DomainsTracked: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "sixfence_domains_tracked",
				Help: "Broadcast domains with derived state",
			}),
			PortsTracked: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "sixfence_ports_tracked",
				Help: "Ports with switching configuration",
			}),
			RulesInstalled: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "sixfence_rules_installed",
				Help: "Permit rules currently installed across all ACLs",
			}),
		}
	})
	return registry
}
