package controller

import (
	"context"
	"fmt"
	"net/netip"

	"grimm.is/sixfence/internal/acl"
	"grimm.is/sixfence/internal/events"
	"grimm.is/sixfence/internal/logging"
	"grimm.is/sixfence/internal/metrics"
	"grimm.is/sixfence/internal/state"
	"grimm.is/sixfence/internal/topology"
)

// ErrUnsupportedPlatform is returned when the ACL store cannot program
// IPv6 ACLs. The process must not start reacting to topology in that case.
var ErrUnsupportedPlatform = fmt.Errorf("platform does not support IPv6 ACLs")

// Config wires a Controller.
type Config struct {
	Prefix  string
	Source  topology.Source
	Store   acl.Store
	Pattern topology.SviPattern
	Logger  *logging.Logger
	Hub     *events.Hub
}

// Controller owns the derived state and processes topology events on a
// single goroutine: every handler runs to completion before the next event
// is taken, so reconciliations never overlap and the state maps need no
// locks.
type Controller struct {
	prefix  string
	source  topology.Source
	acls    acl.Store
	pattern topology.SviPattern
	logger  *logging.Logger
	hub     *events.Hub
	reg     *metrics.Registry

	state *state.Store
	rec   *Reconciler

	// lagMembers is the last seen membership per aggregation group, used
	// to diff add/remove of members.
	lagMembers map[string]map[string]bool
}

// New creates a Controller. Pattern defaults to the EOS SVI convention.
func New(cfg Config) *Controller {
	if cfg.Prefix == "" {
		cfg.Prefix = acl.DefaultPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.WithComponent("controller")
	}
	if cfg.Hub == nil {
		cfg.Hub = events.NewHub()
	}
	if (cfg.Pattern == topology.SviPattern{}) {
		cfg.Pattern = topology.MustSviPattern(topology.DefaultSviPattern)
	}

	st := state.NewStore()
	return &Controller{
		prefix:     cfg.Prefix,
		source:     cfg.Source,
		acls:       cfg.Store,
		pattern:    cfg.Pattern,
		logger:     cfg.Logger,
		hub:        cfg.Hub,
		reg:        metrics.Get(),
		state:      st,
		rec:        NewReconciler(st, cfg.Store, cfg.Prefix, cfg.Logger.WithComponent("reconciler"), cfg.Hub),
		lagMembers: make(map[string]map[string]bool),
	}
}

// Hub returns the controller's event hub, for trace subscribers.
func (c *Controller) Hub() *events.Hub {
	return c.hub
}

// Reconciler exposes the decision engine, mainly for tests.
func (c *Controller) Reconciler() *Reconciler {
	return c.rec
}

// Start gates on platform capability, sweeps stale ACLs, seeds derived
// state from a topology snapshot, and runs one global reconcile pass.
// After Start returns, the controller's state matches the snapshot and the
// ACL store holds exactly the derived set.
func (c *Controller) Start(ctx context.Context) error {
	ok, err := c.acls.Supports(ctx)
	if err != nil {
		return fmt.Errorf("probing ACL capability: %w", err)
	}
	if !ok {
		return ErrUnsupportedPlatform
	}

	// Stale ACLs from a previous run are removed wholesale before any new
	// state is programmed; parameters or logic may have changed since.
	removed, err := c.acls.Sweep(ctx, c.prefix)
	if err != nil {
		return fmt.Errorf("sweeping stale ACLs: %w", err)
	}
	if removed > 0 {
		c.logger.Info("removed stale acls", "count", removed)
	}
	c.reg.SweepRemoved.Add(float64(removed))
	c.hub.Publish(events.Event{
		Type:   events.EventACLSweep,
		Source: "sweep",
		Data:   events.SweepData{Prefix: c.prefix, Removed: removed},
	})

	snap, err := c.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading topology snapshot: %w", err)
	}
	c.seed(snap)

	// Global pass instead of per-reactor construction-time reconciles:
	// all derived state is in place first, so ordering between the
	// collections cannot matter.
	for _, port := range c.state.SwitchedPorts() {
		if err := c.rec.Reconcile(ctx, port); err != nil {
			c.logger.Error("startup reconcile failed", "port", port, "error", err)
		}
	}

	c.updateGauges()
	c.logger.Info("controller started",
		"ports", len(c.state.SwitchedPorts()), "prefix", c.prefix)
	return nil
}

// seed loads a snapshot into the derived state without touching the ACL
// store.
func (c *Controller) seed(snap *topology.Snapshot) {
	for _, lag := range snap.Lags {
		members := make(map[string]bool, len(lag.Members))
		for _, m := range lag.Members {
			members[m] = true
			c.state.MarkAggregationMember(m)
		}
		c.lagMembers[lag.Name] = members
	}
	for _, svi := range snap.Svis {
		if id, ok := c.pattern.VlanID(svi.Name); ok {
			c.state.RecordAddresses(id, routable(svi.Addresses))
		}
	}
	for _, st := range snap.Interfaces {
		c.state.SetPortStatus(st)
	}
	for _, cfg := range snap.Switchports {
		c.state.SetSwitchport(cfg)
		c.rec.RefreshMembership(cfg.Name)
	}
}

// Run starts the controller and then processes the event stream until ctx
// is cancelled or the source closes it.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	ch, err := c.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching topology: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			// No teardown of installed ACLs: the next startup's sweep
			// is the cleanup mechanism.
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			c.Handle(ctx, e)
		}
	}
}

// Handle processes one topology event to completion.
func (c *Controller) Handle(ctx context.Context, e topology.Event) {
	c.reg.EventsTotal.WithLabelValues(e.Collection(), string(e.Op)).Inc()
	c.hub.Publish(events.Event{
		Type:   events.EventTopology,
		Source: "dispatcher",
		Data:   events.TopologyData{Collection: e.Collection(), Op: string(e.Op), Entity: e.Entity()},
	})

	switch {
	case e.Lag != nil:
		c.handleLag(ctx, e)
	case e.Svi != nil:
		c.handleSvi(ctx, e)
	case e.Interface != nil:
		c.handleInterface(ctx, e)
	case e.Switchport != nil:
		c.handleSwitchport(ctx, e)
	default:
		c.logger.Warn("event with no payload", "op", string(e.Op))
	}
}

// handleLag diffs group membership and reconciles every port that joined
// or left, since joining strips a port's ACL and leaving restores it.
func (c *Controller) handleLag(ctx context.Context, e topology.Event) {
	name := e.Lag.Name

	newMembers := make(map[string]bool)
	if e.Op != topology.OpRemove {
		for _, m := range e.Lag.Members {
			newMembers[m] = true
		}
	}
	oldMembers := c.lagMembers[name]

	for m := range newMembers {
		if !oldMembers[m] {
			c.state.MarkAggregationMember(m)
			c.reconcilePort(ctx, m)
		}
	}
	for m := range oldMembers {
		if !newMembers[m] {
			c.state.UnmarkAggregationMember(m)
			c.reconcilePort(ctx, m)
		}
	}

	if e.Op == topology.OpRemove {
		delete(c.lagMembers, name)
	} else {
		c.lagMembers[name] = newMembers
	}
}

// handleSvi updates a domain's address set and fans out to every carrying
// port. Interfaces not matching the SVI pattern are ignored.
func (c *Controller) handleSvi(ctx context.Context, e topology.Event) {
	id, ok := c.pattern.VlanID(e.Svi.Name)
	if !ok {
		return
	}

	if e.Op == topology.OpRemove {
		c.state.RemoveDomain(id)
	} else {
		c.state.RecordAddresses(id, routable(e.Svi.Addresses))
	}

	if err := c.rec.ReconcileDomain(ctx, id); err != nil {
		c.logger.Error("domain fan-out failed", "domain", id, "error", err)
	}
}

// handleInterface tracks operational status. Reconciliation only fires for
// ports that already have a switching configuration; a status record alone
// says nothing about eligibility.
func (c *Controller) handleInterface(ctx context.Context, e topology.Event) {
	name := e.Interface.Name

	if e.Op == topology.OpRemove {
		c.state.RemovePortStatus(name)
	} else {
		c.state.SetPortStatus(*e.Interface)
	}

	if _, ok := c.state.Switchport(name); ok {
		c.reconcilePort(ctx, name)
	}
}

// handleSwitchport rewrites a port's configuration and domain membership,
// then reconciles. Membership must be refreshed before the reconcile reads
// coverage, and before any future fan-out consults the reverse index.
func (c *Controller) handleSwitchport(ctx context.Context, e topology.Event) {
	name := e.Switchport.Name

	if e.Op == topology.OpRemove {
		c.state.RemoveSwitchport(name)
		c.state.ClearPortMemberships(name)
		if err := c.rec.Teardown(ctx, name); err != nil {
			c.logger.Error("teardown failed", "port", name, "error", err)
		}
		c.updateGauges()
		return
	}

	c.state.SetSwitchport(*e.Switchport)
	c.rec.RefreshMembership(name)
	c.reconcilePort(ctx, name)
	c.updateGauges()
}

func (c *Controller) reconcilePort(ctx context.Context, port string) {
	if err := c.rec.Reconcile(ctx, port); err != nil {
		c.logger.Error("reconcile failed", "port", port, "error", err)
	}
}

func (c *Controller) updateGauges() {
	c.reg.PortsTracked.Set(float64(len(c.state.SwitchedPorts())))
}

// routable filters an address list down to global IPv6 prefixes. Sources
// generally pre-filter, but scripted sources used in tests may not.
func routable(addrs []netip.Prefix) []netip.Prefix {
	out := addrs[:0:0]
	for _, a := range addrs {
		if topology.RoutableV6(a) {
			out = append(out, a)
		}
	}
	return out
}
