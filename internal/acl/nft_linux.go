//go:build linux
// +build linux

package acl

import (
	"context"
	"fmt"
	"net"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"
)

// IPv6 header offsets (RFC 8200).
const (
	ipv6SrcOffset = 8
	ipv6AddrLen   = 16
)

// NFTConn is the slice of *nftables.Conn the store uses, split out so
// tests can substitute an in-memory fake.
type NFTConn interface {
	AddTable(t *nftables.Table) *nftables.Table
	DelTable(t *nftables.Table)
	ListTables() ([]*nftables.Table, error)
	AddChain(c *nftables.Chain) *nftables.Chain
	DelChain(c *nftables.Chain)
	ListChainsOfTableFamily(family nftables.TableFamily) ([]*nftables.Chain, error)
	AddRule(r *nftables.Rule) *nftables.Rule
	Flush() error
}

// NFTStore programs per-port ingress filters as netdev-family chains:
// one chain per port, hooked at ingress on that device, holding one accept
// rule per permitted source prefix followed by a drop of all other IPv6.
// Non-IPv6 traffic falls through to the chain policy (accept); the filter
// is v6-only by design of the controller.
type NFTStore struct {
	conn      NFTConn
	tableName string
}

// NewNFTStore creates an nftables-backed ACL store. tableName is also the
// ACL naming prefix (one table owns all controller chains).
func NewNFTStore(tableName string) (*NFTStore, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("opening nftables connection: %w", err)
	}
	return &NFTStore{conn: conn, tableName: tableName}, nil
}

// NewNFTStoreWithConn creates a store over an injected connection (tests).
func NewNFTStoreWithConn(conn NFTConn, tableName string) *NFTStore {
	return &NFTStore{conn: conn, tableName: tableName}
}

// Supports reports whether nftables is reachable; IPv6 matching is part of
// the base feature set wherever nftables runs.
func (s *NFTStore) Supports(context.Context) (bool, error) {
	if _, err := s.conn.ListTables(); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *NFTStore) table() *nftables.Table {
	return &nftables.Table{Name: s.tableName, Family: nftables.TableFamilyNetdev}
}

func (s *NFTStore) findChain(name string) (*nftables.Chain, error) {
	chains, err := s.conn.ListChainsOfTableFamily(nftables.TableFamilyNetdev)
	if err != nil {
		return nil, fmt.Errorf("listing chains: %w", err)
	}
	for _, c := range chains {
		if c.Table != nil && c.Table.Name == s.tableName && c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

// Apply rebuilds the port's chain from scratch and commits atomically.
func (s *NFTStore) Apply(_ context.Context, port string, a ACL) error {
	table := s.conn.AddTable(s.table())

	if existing, err := s.findChain(a.Name); err != nil {
		return err
	} else if existing != nil {
		s.conn.DelChain(existing)
	}

	policy := nftables.ChainPolicyAccept
	chain := s.conn.AddChain(&nftables.Chain{
		Name:     a.Name,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookIngress,
		Priority: nftables.ChainPriorityRef(0),
		Device:   port,
		Policy:   &policy,
	})

	for _, r := range a.Rules {
		s.conn.AddRule(&nftables.Rule{
			Table: table,
			Chain: chain,
			Exprs: append(sourceMatch(r.Source.Addr().AsSlice(), r.Source.Bits()),
				&expr.Verdict{Kind: expr.VerdictAccept}),
		})
	}

	// Everything IPv6 the permits did not match is dropped.
	s.conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: []expr.Any{
			&expr.Meta{Key: expr.MetaKeyNFPROTO, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{unix.NFPROTO_IPV6}},
			&expr.Verdict{Kind: expr.VerdictDrop},
		},
	})

	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("installing chain %s on %s: %w", a.Name, port, err)
	}
	return nil
}

// Remove deletes the port's chain if it exists.
func (s *NFTStore) Remove(_ context.Context, port, name string) error {
	chain, err := s.findChain(name)
	if err != nil {
		return err
	}
	if chain == nil {
		return nil
	}
	s.conn.DelChain(chain)
	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("removing chain %s from %s: %w", name, port, err)
	}
	return nil
}

// Sweep drops the whole controller table, taking every chain with it.
func (s *NFTStore) Sweep(_ context.Context, prefix string) (int, error) {
	tables, err := s.conn.ListTables()
	if err != nil {
		return 0, fmt.Errorf("listing tables: %w", err)
	}
	found := false
	for _, t := range tables {
		if t.Name == s.tableName && t.Family == nftables.TableFamilyNetdev {
			found = true
			break
		}
	}
	if !found {
		return 0, nil
	}

	chains, err := s.conn.ListChainsOfTableFamily(nftables.TableFamilyNetdev)
	if err != nil {
		return 0, fmt.Errorf("listing chains: %w", err)
	}
	removed := 0
	for _, c := range chains {
		if c.Table != nil && c.Table.Name == s.tableName && Matches(prefix, c.Name) {
			removed++
		}
	}

	s.conn.DelTable(s.table())
	if err := s.conn.Flush(); err != nil {
		return 0, fmt.Errorf("sweeping table %s: %w", s.tableName, err)
	}
	return removed, nil
}

// sourceMatch builds expressions matching an IPv6 source prefix, including
// the nfproto guard so v4 traffic never hits the payload load.
func sourceMatch(addr []byte, bits int) []expr.Any {
	exprs := []expr.Any{
		&expr.Meta{Key: expr.MetaKeyNFPROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{unix.NFPROTO_IPV6}},
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseNetworkHeader,
			Offset:       ipv6SrcOffset,
			Len:          ipv6AddrLen,
		},
	}

	mask := net.CIDRMask(bits, 128)
	target := make([]byte, ipv6AddrLen)
	for i := range target {
		target[i] = addr[i] & mask[i]
	}

	if bits < 128 {
		exprs = append(exprs, &expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            ipv6AddrLen,
			Mask:           mask,
			Xor:            make([]byte, ipv6AddrLen),
		})
	}

	exprs = append(exprs, &expr.Cmp{
		Op:       expr.CmpOpEq,
		Register: 1,
		Data:     target,
	})
	return exprs
}
