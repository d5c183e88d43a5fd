package acl

import (
	"context"

	"grimm.is/sixfence/internal/logging"
)

// Store programs named ACLs and per-port ingress bindings. Implementations
// must make Apply a full replace and Remove idempotent; the controller
// leans on delete-before-create rather than error recovery.
type Store interface {
	// Supports reports whether the platform can program IPv6 ACLs.
	// The controller refuses to start when this is false.
	Supports(ctx context.Context) (bool, error)

	// Apply installs (or replaces) the ACL and binds it to the port's
	// ingress direction.
	Apply(ctx context.Context, port string, a ACL) error

	// Remove deletes the named ACL and the port's ingress binding to it.
	// Removing an absent ACL is not an error.
	Remove(ctx context.Context, port, name string) error

	// Sweep deletes every ACL matching the naming convention for prefix,
	// along with any ingress bindings referencing them. It returns the
	// number of ACLs removed.
	Sweep(ctx context.Context, prefix string) (int, error)
}

// DryRunStore wraps a Store and logs every write instead of performing it.
// Supports is passed through so the capability gate still works.
type DryRunStore struct {
	Wrapped Store
	Logger  *logging.Logger
}

// NewDryRunStore creates a store that narrates writes without applying them.
func NewDryRunStore(wrapped Store, logger *logging.Logger) *DryRunStore {
	if logger == nil {
		logger = logging.WithComponent("acl-dryrun")
	}
	return &DryRunStore{Wrapped: wrapped, Logger: logger}
}

// Supports consults the wrapped store.
func (s *DryRunStore) Supports(ctx context.Context) (bool, error) {
	return s.Wrapped.Supports(ctx)
}

// Apply logs the would-be install.
func (s *DryRunStore) Apply(_ context.Context, port string, a ACL) error {
	s.Logger.Info("dry-run: would install acl", "port", port, "name", a.Name, "rules", len(a.Rules))
	for _, r := range a.Rules {
		s.Logger.Debug("dry-run: rule", "seq", r.Seq, "source", r.Source.String())
	}
	return nil
}

// Remove logs the would-be removal.
func (s *DryRunStore) Remove(_ context.Context, port, name string) error {
	s.Logger.Info("dry-run: would remove acl", "port", port, "name", name)
	return nil
}

// Sweep logs the would-be sweep.
func (s *DryRunStore) Sweep(_ context.Context, prefix string) (int, error) {
	s.Logger.Info("dry-run: would sweep acls", "prefix", prefix)
	return 0, nil
}
