package acl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and by the check
// subcommand. It records ACLs, bindings, and an ordered operation log so
// tests can assert on both final state and write sequence.
type MemoryStore struct {
	mu sync.Mutex

	acls     map[string]ACL    // name -> ACL
	bindings map[string]string // port -> bound ACL name

	ops []string

	// SupportsV6 is consulted by Supports. Defaults to true.
	SupportsV6 bool
	// FailNext, when set, makes the next write return an error.
	FailNext error
}

// NewMemoryStore creates an empty in-memory ACL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		acls:       make(map[string]ACL),
		bindings:   make(map[string]string),
		SupportsV6: true,
	}
}

func (s *MemoryStore) takeErr() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

// Supports reports the configured capability flag.
func (s *MemoryStore) Supports(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SupportsV6, nil
}

// Apply installs the ACL and binds it to the port.
func (s *MemoryStore) Apply(_ context.Context, port string, a ACL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return err
	}
	s.acls[a.Name] = a
	s.bindings[port] = a.Name
	s.ops = append(s.ops, fmt.Sprintf("apply %s %s (%d rules)", port, a.Name, len(a.Rules)))
	return nil
}

// Remove deletes the ACL and the port's binding. Idempotent.
func (s *MemoryStore) Remove(_ context.Context, port, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return err
	}
	delete(s.acls, name)
	if s.bindings[port] == name {
		delete(s.bindings, port)
	}
	s.ops = append(s.ops, fmt.Sprintf("remove %s %s", port, name))
	return nil
}

// Sweep deletes every ACL whose name matches the prefix convention and any
// binding referencing one.
func (s *MemoryStore) Sweep(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return 0, err
	}
	removed := 0
	for name := range s.acls {
		if Matches(prefix, name) {
			delete(s.acls, name)
			removed++
		}
	}
	for port, name := range s.bindings {
		if Matches(prefix, name) {
			delete(s.bindings, port)
		}
	}
	s.ops = append(s.ops, fmt.Sprintf("sweep %s (%d)", prefix, removed))
	return removed, nil
}

// Get returns the stored ACL by name.
func (s *MemoryStore) Get(name string) (ACL, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.acls[name]
	return a, ok
}

// Binding returns the name of the ACL bound to port, if any.
func (s *MemoryStore) Binding(port string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.bindings[port]
	return name, ok
}

// Names returns all stored ACL names, sorted.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.acls))
	for name := range s.acls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ops returns the operation log.
func (s *MemoryStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// OpsMatching returns log entries containing substr, for targeted asserts.
func (s *MemoryStore) OpsMatching(substr string) []string {
	var out []string
	for _, op := range s.Ops() {
		if strings.Contains(op, substr) {
			out = append(out, op)
		}
	}
	return out
}

// Seed installs an ACL and binding directly, bypassing the log. Used to
// set up pre-existing state for sweep tests.
func (s *MemoryStore) Seed(port string, a ACL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acls[a.Name] = a
	s.bindings[port] = a.Name
}
