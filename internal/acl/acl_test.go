package acl

import (
	"context"
	"net/netip"
	"testing"
)

func pfx(s string) netip.Prefix {
	return netip.MustParsePrefix(s)
}

func TestName(t *testing.T) {
	tests := []struct {
		port string
		want string
	}{
		{"Ethernet1", "sixfence_Ethernet1"},
		{"Ethernet3/1", "sixfence_Ethernet3_1"},
		{"Port-Channel10", "sixfence_Port-Channel10"},
	}
	for _, tt := range tests {
		if got := Name(DefaultPrefix, tt.port); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.port, got, tt.want)
		}
	}
}

func TestMatches(t *testing.T) {
	if !Matches("sixfence", "sixfence_Ethernet1") {
		t.Error("expected match for controller-named acl")
	}
	if Matches("sixfence", "sixfenceX_Ethernet1") {
		t.Error("prefix must be followed by underscore")
	}
	if Matches("sixfence", "other_Ethernet1") {
		t.Error("foreign acl must not match")
	}
}

func TestBuildSequenceNumbers(t *testing.T) {
	addrs := map[int][]netip.Prefix{
		10: {pfx("2001:db8:a::/64"), pfx("2001:db8:b::/64")},
		20: {pfx("2001:db8:c::/64")},
	}
	a := Build("sixfence_Ethernet1", []int{10, 20}, func(d int) []netip.Prefix {
		return addrs[d]
	})

	if len(a.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(a.Rules))
	}
	wantSeq := []int{10, 20, 30}
	wantSrc := []netip.Prefix{pfx("2001:db8:a::/64"), pfx("2001:db8:b::/64"), pfx("2001:db8:c::/64")}
	for i, r := range a.Rules {
		if r.Seq != wantSeq[i] {
			t.Errorf("rule %d: seq %d, want %d", i, r.Seq, wantSeq[i])
		}
		if r.Source != wantSrc[i] {
			t.Errorf("rule %d: source %s, want %s", i, r.Source, wantSrc[i])
		}
	}
}

func TestBuildEmptyDomains(t *testing.T) {
	a := Build("sixfence_Ethernet1", nil, func(int) []netip.Prefix { return nil })
	if len(a.Rules) != 0 {
		t.Errorf("expected no rules, got %d", len(a.Rules))
	}
}

func TestMemoryStoreReplaceAndSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := ACL{Name: "sixfence_Ethernet1", Rules: []Rule{{Seq: 10, Source: pfx("2001:db8::/64")}}}
	if err := s.Apply(ctx, "Ethernet1", a); err != nil {
		t.Fatal(err)
	}
	if name, ok := s.Binding("Ethernet1"); !ok || name != a.Name {
		t.Fatalf("expected binding to %s, got %q ok=%v", a.Name, name, ok)
	}

	// Foreign ACL survives the sweep
	s.Seed("Ethernet9", ACL{Name: "other_Ethernet9"})

	removed, err := s.Sweep(ctx, DefaultPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := s.Get("other_Ethernet9"); !ok {
		t.Error("foreign acl should survive sweep")
	}
	if _, ok := s.Binding("Ethernet1"); ok {
		t.Error("binding should be gone after sweep")
	}
}

func TestMemoryStoreRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Remove(ctx, "Ethernet1", "sixfence_Ethernet1"); err != nil {
		t.Fatalf("removing absent acl should succeed, got %v", err)
	}
}

func TestRender(t *testing.T) {
	a := ACL{Name: "sixfence_Ethernet1", Rules: []Rule{
		{Seq: 10, Source: pfx("2001:db8:a::/64")},
		{Seq: 20, Source: pfx("2001:db8:b::/64")},
	}}
	out := Render(a)
	want := "ipv6 access-list sixfence_Ethernet1\n   10 permit ipv6 2001:db8:a::/64 any\n   20 permit ipv6 2001:db8:b::/64 any\n"
	if out != want {
		t.Errorf("Render mismatch:\n got: %q\nwant: %q", out, want)
	}
}
