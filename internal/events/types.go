// Package events provides a pub/sub event bus for controller observability.
// Every reconciliation decision and ACL store mutation is published here so
// the debug trace, metrics, and tests can observe the controller without
// hooking into its internals.
package events

import "time"

// EventType identifies the category of event.
type EventType string

const (
	// ACL store mutations
	EventACLInstall EventType = "acl.install"
	EventACLRemove  EventType = "acl.remove"
	EventACLSweep   EventType = "acl.sweep"

	// Reconciliation decisions
	EventReconcile     EventType = "reconcile.run"
	EventReconcileSkip EventType = "reconcile.skip"

	// Topology input
	EventTopology EventType = "topology.change"
)

// Event is the core message passed through the event bus.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"` // Component that emitted: "reconciler", "dispatcher", "sweep"
	Data      interface{} `json:"data"`   // Type-specific payload
}

// ACLData is the payload for EventACLInstall/EventACLRemove.
type ACLData struct {
	Port    string `json:"port"`
	Name    string `json:"name"`
	Rules   int    `json:"rules,omitempty"`
	Domains []int  `json:"domains,omitempty"`
}

// SweepData is the payload for EventACLSweep.
type SweepData struct {
	Prefix  string `json:"prefix"`
	Removed int    `json:"removed"`
}

// ReconcileData is the payload for reconciliation events.
type ReconcileData struct {
	Port   string `json:"port"`
	Reason string `json:"reason,omitempty"` // Skip reason: "lag-member", "routed", "down", "no-coverage"
}

// TopologyData is the payload for EventTopology.
type TopologyData struct {
	Collection string `json:"collection"` // "interface", "lag", "svi", "switchport"
	Op         string `json:"op"`         // "add", "update", "remove"
	Entity     string `json:"entity"`
}
