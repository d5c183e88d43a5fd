// Package acl models the permit-only IPv6 ingress ACLs the controller
// derives from topology, and the stores that program them. ACL content is
// fully derived: it is rebuilt from scratch on every reconciliation, never
// patched in place.
package acl

import (
	"net/netip"
	"strings"
)

// DefaultPrefix names controller-owned ACLs. Everything matching
// "<prefix>_*" is considered ours, including by the startup sweep.
const DefaultPrefix = "sixfence"

// SeqStep is the gap between consecutive rule sequence numbers.
const SeqStep = 10

// Rule is a single permit entry: traffic sourced from Source is accepted.
// Action is always permit and logging is always off; anything the rules do
// not match is dropped by the platform's implicit deny.
type Rule struct {
	Seq    int
	Source netip.Prefix
}

// ACL is an ordered, named rule list bound to one port's ingress.
type ACL struct {
	Name  string
	Rules []Rule
}

// Name derives the ACL name for a port. Interface names can contain
// characters the stores reject ("/" in breakout ports), so those are
// folded to underscores. The mapping must stay collision-free across
// ports: each rune maps independently and no two valid EOS interface
// names differ only in rejected characters.
func Name(prefix, port string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', ' ', ':':
			return '_'
		}
		return r
	}, port)
	return prefix + "_" + sanitized
}

// Matches reports whether name follows the controller's naming convention
// for the given prefix.
func Matches(prefix, name string) bool {
	return strings.HasPrefix(name, prefix+"_")
}

// Build assembles the ACL for a port from its covered domains. Rules are
// emitted in domain-then-address order with sequence numbers 10, 20, 30…
// across the whole list; addrsOf must return each domain's addresses in a
// stable order so the ACL is deterministic across rebuilds.
func Build(name string, domains []int, addrsOf func(int) []netip.Prefix) ACL {
	a := ACL{Name: name}
	seq := SeqStep
	for _, d := range domains {
		for _, addr := range addrsOf(d) {
			a.Rules = append(a.Rules, Rule{Seq: seq, Source: addr})
			seq += SeqStep
		}
	}
	return a
}
