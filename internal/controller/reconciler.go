// Package controller contains the reconciliation engine: the decision
// function that derives each port's ingress ACL from current topology, and
// the dispatcher that feeds it from the topology event stream.
package controller

import (
	"context"
	"strings"

	"grimm.is/sixfence/internal/acl"
	"grimm.is/sixfence/internal/events"
	"grimm.is/sixfence/internal/logging"
	"grimm.is/sixfence/internal/metrics"
	"grimm.is/sixfence/internal/state"
	"grimm.is/sixfence/internal/topology"
)

// Skip reasons, published with reconcile.skip events and debug traces.
const (
	skipLagMember  = "lag-member"
	skipRouted     = "routed"
	skipNoStatus   = "no-status"
	skipDown       = "down"
	skipNoCoverage = "no-coverage"
)

// defaultAggregatePrefixes identify aggregate (port-channel/bond) interfaces
// by name; those treat an unknown link state as up.
var defaultAggregatePrefixes = []string{"Port-Channel", "bond"}

// Reconciler derives the desired ACL for a port from the state store and
// drives the ACL store to match. It is the only writer to the ACL store.
type Reconciler struct {
	store  *state.Store
	acls   acl.Store
	prefix string
	logger *logging.Logger
	hub    *events.Hub
	reg    *metrics.Registry

	// AggregatePrefixes overrides aggregate-port name detection.
	AggregatePrefixes []string

	// ruleCounts tracks installed rules per port, feeding the gauge.
	ruleCounts map[string]int
}

// NewReconciler creates a reconciler over the given stores.
func NewReconciler(st *state.Store, acls acl.Store, prefix string, logger *logging.Logger, hub *events.Hub) *Reconciler {
	if logger == nil {
		logger = logging.WithComponent("reconciler")
	}
	if hub == nil {
		hub = events.NewHub()
	}
	return &Reconciler{
		store:             st,
		acls:              acls,
		prefix:            prefix,
		logger:            logger,
		hub:               hub,
		reg:               metrics.Get(),
		AggregatePrefixes: defaultAggregatePrefixes,
		ruleCounts:        make(map[string]int),
	}
}

func (r *Reconciler) setRuleCount(port string, n int) {
	if n == 0 {
		delete(r.ruleCounts, port)
	} else {
		r.ruleCounts[port] = n
	}
	total := 0
	for _, c := range r.ruleCounts {
		total += c
	}
	r.reg.RulesInstalled.Set(float64(total))
	r.reg.DomainsTracked.Set(float64(r.store.DomainCount()))
}

// configuredVlans lists the VLANs a port's switching configuration assigns
// it to, independent of whether those domains have addresses.
func configuredVlans(cfg topology.SwitchportConfig) ([]int, error) {
	switch cfg.Mode {
	case topology.ModeAccess:
		if cfg.AccessVlan <= 0 {
			return nil, nil
		}
		return []int{cfg.AccessVlan}, nil
	case topology.ModeTrunk:
		return ExpandVlanRanges(cfg.TrunkAllowedVlans)
	}
	return nil, nil
}

// RefreshMembership rewrites the domain→ports reverse index for one port
// from its current switching configuration. Must run before Reconcile
// whenever the configuration changed, so fan-out stays accurate.
func (r *Reconciler) RefreshMembership(port string) {
	r.store.ClearPortMemberships(port)

	cfg, ok := r.store.Switchport(port)
	if !ok || !cfg.Enabled {
		return
	}
	vlans, err := configuredVlans(cfg)
	if err != nil {
		r.logger.Error("unparseable vlan configuration, treating port as unassigned",
			"port", port, "error", err)
		return
	}
	for _, v := range vlans {
		r.store.RecordPortMembership(v, port)
	}
}

// isAggregate reports whether the port name denotes an aggregate interface.
func (r *Reconciler) isAggregate(port string) bool {
	for _, p := range r.AggregatePrefixes {
		if strings.HasPrefix(port, p) {
			return true
		}
	}
	return false
}

// Reconcile recomputes the port's desired ACL and drives the store to it.
// The existing ACL is always removed first; a fresh one is installed only
// when the port is eligible and covers at least one addressed domain.
func (r *Reconciler) Reconcile(ctx context.Context, port string) error {
	cfg, hasCfg := r.store.Switchport(port)

	var covered []int
	if hasCfg && cfg.Enabled {
		vlans, err := configuredVlans(cfg)
		if err != nil {
			r.logger.Error("unparseable vlan configuration, treating port as unassigned",
				"port", port, "error", err)
		}
		for _, v := range vlans {
			if r.store.HasAddresses(v) {
				covered = append(covered, v)
			}
		}
	}

	// Delete before evaluate: content is never patched in place.
	name := acl.Name(r.prefix, port)
	if err := r.acls.Remove(ctx, port, name); err != nil {
		r.reg.StoreErrors.Inc()
		return err
	}
	if len(r.store.Coverage(port)) > 0 {
		r.hub.Publish(events.Event{
			Type:   events.EventACLRemove,
			Source: "reconciler",
			Data:   events.ACLData{Port: port, Name: name},
		})
		r.reg.ACLRemovals.Inc()
	}
	r.store.SetCoverage(port, nil)
	r.setRuleCount(port, 0)

	if skip := r.eligibility(port, hasCfg, cfg, covered); skip != "" {
		r.logger.Debug("no acl for port", "port", port, "reason", skip)
		r.hub.Publish(events.Event{
			Type:   events.EventReconcileSkip,
			Source: "reconciler",
			Data:   events.ReconcileData{Port: port, Reason: skip},
		})
		r.reg.ReconcilesTotal.WithLabelValues("skip").Inc()
		return nil
	}

	a := acl.Build(name, covered, r.store.Addresses)
	if err := r.acls.Apply(ctx, port, a); err != nil {
		r.reg.StoreErrors.Inc()
		return err
	}
	r.store.SetCoverage(port, covered)
	r.setRuleCount(port, len(a.Rules))

	r.logger.Debug("installed acl", "port", port, "name", name,
		"rules", len(a.Rules), "domains", len(covered))
	r.hub.Publish(events.Event{
		Type:   events.EventACLInstall,
		Source: "reconciler",
		Data:   events.ACLData{Port: port, Name: name, Rules: len(a.Rules), Domains: covered},
	})
	r.reg.ReconcilesTotal.WithLabelValues("install").Inc()
	r.reg.ACLInstalls.Inc()
	return nil
}

// eligibility returns the skip reason keeping the port ACL-free, or ""
// when an ACL should be installed.
func (r *Reconciler) eligibility(port string, hasCfg bool, cfg topology.SwitchportConfig, covered []int) string {
	// Aggregated sub-ports never carry filtered traffic directly.
	if r.store.IsAggregationMember(port) {
		return skipLagMember
	}
	if !hasCfg || !cfg.Enabled {
		return skipRouted
	}
	st, ok := r.store.PortStatus(port)
	if !ok {
		return skipNoStatus
	}
	up := st.OperStatus == topology.OperUp ||
		(r.isAggregate(port) && st.OperStatus == topology.OperUnknown)
	if !up {
		return skipDown
	}
	if len(covered) == 0 {
		return skipNoCoverage
	}
	return ""
}

// ReconcileDomain fans out to every port currently carrying the domain.
func (r *Reconciler) ReconcileDomain(ctx context.Context, id int) error {
	var firstErr error
	for _, port := range r.store.Ports(id) {
		r.reg.FanoutTotal.Inc()
		if err := r.Reconcile(ctx, port); err != nil {
			r.logger.Error("fan-out reconcile failed", "port", port, "domain", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Teardown deletes the port's ACL without re-evaluating eligibility. Used
// when a port's switching configuration is removed outright.
func (r *Reconciler) Teardown(ctx context.Context, port string) error {
	name := acl.Name(r.prefix, port)
	if err := r.acls.Remove(ctx, port, name); err != nil {
		r.reg.StoreErrors.Inc()
		return err
	}
	if len(r.store.Coverage(port)) > 0 {
		r.hub.Publish(events.Event{
			Type:   events.EventACLRemove,
			Source: "reconciler",
			Data:   events.ACLData{Port: port, Name: name},
		})
		r.reg.ACLRemovals.Inc()
	}
	r.store.SetCoverage(port, nil)
	r.setRuleCount(port, 0)
	r.reg.ReconcilesTotal.WithLabelValues("clear").Inc()
	return nil
}
