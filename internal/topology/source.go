package topology

import "context"

// Source provides the controller's view of switch state. Snapshot seeds the
// derived state; Watch then streams changes in emission order. Events for a
// given collection are delivered in the order they occurred; no ordering is
// guaranteed across collections.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Watch(ctx context.Context) (<-chan Event, error)
}
