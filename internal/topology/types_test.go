package topology

import (
	"net/netip"
	"testing"
)

func TestSviPattern(t *testing.T) {
	p := MustSviPattern(DefaultSviPattern)

	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"Vlan30", 30, true},
		{"Vlan1", 1, true},
		{"Vlan4094", 4094, true},
		{"vlan30", 0, false},
		{"Vlan", 0, false},
		{"Ethernet1", 0, false},
		{"Vlan30.1", 0, false},
	}
	for _, tt := range tests {
		got, ok := p.VlanID(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("VlanID(%q) = %d,%v; want %d,%v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRoutableV6(t *testing.T) {
	tests := []struct {
		prefix string
		want   bool
	}{
		{"2001:db8::1/64", true},
		{"fd00::1/64", true},
		{"fe80::1/64", false},
		{"::ffff:192.0.2.1/128", false},
	}
	for _, tt := range tests {
		p := netip.MustParsePrefix(tt.prefix)
		if got := RoutableV6(p); got != tt.want {
			t.Errorf("RoutableV6(%s) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestRenderVlanRanges(t *testing.T) {
	tests := []struct {
		vids []int
		want string
	}{
		{nil, ""},
		{[]int{5}, "5"},
		{[]int{10, 11, 12}, "10-12"},
		{[]int{20, 10, 12, 11, 30}, "10-12,20,30"},
		{[]int{1, 1, 2}, "1-2"},
	}
	for _, tt := range tests {
		if got := RenderVlanRanges(tt.vids); got != tt.want {
			t.Errorf("RenderVlanRanges(%v) = %q, want %q", tt.vids, got, tt.want)
		}
	}
}

func TestEventCollectionAndEntity(t *testing.T) {
	e := Event{Op: OpUpdate, Svi: &SviStatus{Name: "Vlan30"}}
	if e.Collection() != "svi" || e.Entity() != "Vlan30" {
		t.Errorf("got %s/%s, want svi/Vlan30", e.Collection(), e.Entity())
	}

	e = Event{Op: OpRemove, Switchport: &SwitchportConfig{Name: "Ethernet3"}}
	if e.Collection() != "switchport" || e.Entity() != "Ethernet3" {
		t.Errorf("got %s/%s, want switchport/Ethernet3", e.Collection(), e.Entity())
	}
}
