package state

import (
	"net/netip"
	"testing"

	"grimm.is/sixfence/internal/topology"
)

func pfx(s string) netip.Prefix {
	return netip.MustParsePrefix(s)
}

func TestAddressSetReplace(t *testing.T) {
	s := NewStore()

	s.RecordAddresses(30, []netip.Prefix{pfx("2001:db8:1::/64"), pfx("2001:db8:2::/64")})
	if !s.HasAddresses(30) {
		t.Fatal("expected domain 30 to have addresses")
	}
	if got := len(s.Addresses(30)); got != 2 {
		t.Fatalf("expected 2 addresses, got %d", got)
	}

	// Replacement, not merge
	s.RecordAddresses(30, []netip.Prefix{pfx("2001:db8:3::/64")})
	addrs := s.Addresses(30)
	if len(addrs) != 1 || addrs[0] != pfx("2001:db8:3::/64") {
		t.Errorf("expected replaced set, got %v", addrs)
	}
}

func TestAddressOrderIsDeterministic(t *testing.T) {
	s := NewStore()
	s.RecordAddresses(10, []netip.Prefix{
		pfx("2001:db8:b::/64"),
		pfx("2001:db8:a::/64"),
		pfx("2001:db8:c::/64"),
	})
	addrs := s.Addresses(10)
	for i := 1; i < len(addrs); i++ {
		if addrs[i-1].String() >= addrs[i].String() {
			t.Fatalf("addresses not in lexicographic order: %v", addrs)
		}
	}
}

func TestDomainLifecycle(t *testing.T) {
	s := NewStore()

	// A port membership alone keeps the domain entry alive
	s.RecordPortMembership(20, "Ethernet1")
	s.RemoveDomain(20)
	if got := s.Ports(20); len(got) != 1 || got[0] != "Ethernet1" {
		t.Errorf("port set should survive address removal, got %v", got)
	}

	// Dropping the last reference drops the entry
	s.ClearPortMemberships("Ethernet1")
	if s.Ports(20) != nil {
		t.Error("expected empty domain entry to be dropped")
	}
	if s.HasAddresses(20) {
		t.Error("dropped domain should have no addresses")
	}
}

func TestClearPortMemberships(t *testing.T) {
	s := NewStore()
	s.RecordPortMembership(10, "Ethernet1")
	s.RecordPortMembership(20, "Ethernet1")
	s.RecordPortMembership(20, "Ethernet2")

	s.ClearPortMemberships("Ethernet1")

	if got := s.Ports(10); got != nil {
		t.Errorf("domain 10 should be empty, got %v", got)
	}
	if got := s.Ports(20); len(got) != 1 || got[0] != "Ethernet2" {
		t.Errorf("domain 20 should keep Ethernet2, got %v", got)
	}
}

func TestAggregationMembers(t *testing.T) {
	s := NewStore()

	s.MarkAggregationMember("Ethernet5")
	if !s.IsAggregationMember("Ethernet5") {
		t.Error("expected Ethernet5 to be a member")
	}
	s.UnmarkAggregationMember("Ethernet5")
	if s.IsAggregationMember("Ethernet5") {
		t.Error("expected Ethernet5 to be removed")
	}
	// Unmark of a non-member is a no-op
	s.UnmarkAggregationMember("Ethernet6")
}

func TestPortRecords(t *testing.T) {
	s := NewStore()

	s.SetPortStatus(topology.InterfaceStatus{Name: "Ethernet1", OperStatus: topology.OperUp})
	st, ok := s.PortStatus("Ethernet1")
	if !ok || st.OperStatus != topology.OperUp {
		t.Errorf("expected recorded up status, got %+v ok=%v", st, ok)
	}

	s.SetSwitchport(topology.SwitchportConfig{Name: "Ethernet1", Mode: topology.ModeAccess, AccessVlan: 10, Enabled: true})
	s.SetSwitchport(topology.SwitchportConfig{Name: "Ethernet2", Mode: topology.ModeTrunk, TrunkAllowedVlans: "10-20", Enabled: true})

	ports := s.SwitchedPorts()
	if len(ports) != 2 || ports[0] != "Ethernet1" || ports[1] != "Ethernet2" {
		t.Errorf("unexpected switched ports %v", ports)
	}

	s.RemoveSwitchport("Ethernet1")
	if _, ok := s.Switchport("Ethernet1"); ok {
		t.Error("expected Ethernet1 config to be gone")
	}
}

func TestCoverage(t *testing.T) {
	s := NewStore()

	s.SetCoverage("Ethernet1", []int{10, 20})
	if got := s.Coverage("Ethernet1"); len(got) != 2 {
		t.Errorf("expected coverage [10 20], got %v", got)
	}

	s.SetCoverage("Ethernet1", nil)
	if got := s.Coverage("Ethernet1"); got != nil {
		t.Errorf("expected cleared coverage, got %v", got)
	}
}
