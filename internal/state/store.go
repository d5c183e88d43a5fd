// Package state holds the controller's derived view of switch topology:
// which broadcast domains carry which addresses, which ports carry which
// domains, which ports are aggregation members, and the last seen
// operational status and switching configuration per port.
//
// The store is owned by the dispatcher goroutine and is not safe for
// concurrent use; the controller's single-threaded event loop is the only
// writer and reader (no locking needed, matching the processing model).
package state

import (
	"net/netip"
	"sort"

	"grimm.is/sixfence/internal/topology"
)

// domain is one broadcast domain's derived record. Entries exist while
// either set is non-empty and are dropped once both drain.
type domain struct {
	addrs map[netip.Prefix]struct{}
	ports map[string]struct{}
}

// Store is the derived state of the switch as seen by the controller.
type Store struct {
	domains    map[int]*domain
	lagMembers map[string]struct{}

	status  map[string]topology.InterfaceStatus
	configs map[string]topology.SwitchportConfig

	// covered tracks the broadcast domains each port's installed ACL
	// currently spans, for observability and teardown accounting.
	covered map[string][]int
}

// NewStore creates an empty derived state store.
func NewStore() *Store {
	return &Store{
		domains:    make(map[int]*domain),
		lagMembers: make(map[string]struct{}),
		status:     make(map[string]topology.InterfaceStatus),
		configs:    make(map[string]topology.SwitchportConfig),
		covered:    make(map[string][]int),
	}
}

func (s *Store) domainEntry(id int) *domain {
	d, ok := s.domains[id]
	if !ok {
		d = &domain{
			addrs: make(map[netip.Prefix]struct{}),
			ports: make(map[string]struct{}),
		}
		s.domains[id] = d
	}
	return d
}

func (s *Store) dropIfEmpty(id int) {
	if d, ok := s.domains[id]; ok && len(d.addrs) == 0 && len(d.ports) == 0 {
		delete(s.domains, id)
	}
}

// RecordAddresses replaces the address set of a broadcast domain.
func (s *Store) RecordAddresses(id int, addrs []netip.Prefix) {
	d := s.domainEntry(id)
	d.addrs = make(map[netip.Prefix]struct{}, len(addrs))
	for _, a := range addrs {
		d.addrs[a] = struct{}{}
	}
	s.dropIfEmpty(id)
}

// RemoveDomain clears a broadcast domain's address set. The port set is
// kept: ports remain configured for the VLAN even when its SVI goes away.
func (s *Store) RemoveDomain(id int) {
	if d, ok := s.domains[id]; ok {
		d.addrs = make(map[netip.Prefix]struct{})
		s.dropIfEmpty(id)
	}
}

// Addresses returns the domain's address set in lexicographic order.
// ACL rule sequence numbers depend on this order being stable.
func (s *Store) Addresses(id int) []netip.Prefix {
	d, ok := s.domains[id]
	if !ok {
		return nil
	}
	out := make([]netip.Prefix, 0, len(d.addrs))
	for a := range d.addrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// HasAddresses reports whether the domain has a non-empty address set.
func (s *Store) HasAddresses(id int) bool {
	d, ok := s.domains[id]
	return ok && len(d.addrs) > 0
}

// RecordPortMembership adds a port to a domain's carrying-port set,
// creating the domain entry if this is the first reference to it.
func (s *Store) RecordPortMembership(id int, port string) {
	s.domainEntry(id).ports[port] = struct{}{}
}

// ClearPortMemberships removes a port from every domain's port set.
func (s *Store) ClearPortMemberships(port string) {
	for id, d := range s.domains {
		delete(d.ports, port)
		s.dropIfEmpty(id)
	}
}

// Ports returns the ports currently carrying the domain, sorted.
func (s *Store) Ports(id int) []string {
	d, ok := s.domains[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(d.ports))
	for p := range d.ports {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarkAggregationMember records a port as a LAG member.
func (s *Store) MarkAggregationMember(port string) {
	s.lagMembers[port] = struct{}{}
}

// UnmarkAggregationMember removes a port from the LAG member set.
func (s *Store) UnmarkAggregationMember(port string) {
	delete(s.lagMembers, port)
}

// IsAggregationMember reports whether the port is currently a LAG member.
func (s *Store) IsAggregationMember(port string) bool {
	_, ok := s.lagMembers[port]
	return ok
}

// SetPortStatus records a port's operational status.
func (s *Store) SetPortStatus(st topology.InterfaceStatus) {
	s.status[st.Name] = st
}

// RemovePortStatus forgets a port's operational status.
func (s *Store) RemovePortStatus(port string) {
	delete(s.status, port)
}

// PortStatus returns the recorded status for a port, if any.
func (s *Store) PortStatus(port string) (topology.InterfaceStatus, bool) {
	st, ok := s.status[port]
	return st, ok
}

// SetSwitchport records a port's switching configuration.
func (s *Store) SetSwitchport(cfg topology.SwitchportConfig) {
	s.configs[cfg.Name] = cfg
}

// RemoveSwitchport forgets a port's switching configuration.
func (s *Store) RemoveSwitchport(port string) {
	delete(s.configs, port)
}

// Switchport returns the recorded switching configuration for a port.
func (s *Store) Switchport(port string) (topology.SwitchportConfig, bool) {
	cfg, ok := s.configs[port]
	return cfg, ok
}

// SwitchedPorts returns every port with a switching configuration, sorted.
// The global reconcile pass at startup walks this list.
func (s *Store) SwitchedPorts() []string {
	out := make([]string, 0, len(s.configs))
	for p := range s.configs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DomainCount returns the number of broadcast domains with live entries.
func (s *Store) DomainCount() int {
	return len(s.domains)
}

// SetCoverage records the domains a port's installed ACL spans.
// An empty or nil set means the port has no ACL.
func (s *Store) SetCoverage(port string, domains []int) {
	if len(domains) == 0 {
		delete(s.covered, port)
		return
	}
	s.covered[port] = append([]int(nil), domains...)
}

// Coverage returns the domains a port's installed ACL spans.
func (s *Store) Coverage(port string) []int {
	return s.covered[port]
}
