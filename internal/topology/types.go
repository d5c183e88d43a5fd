// Package topology defines the boundary to the switch state the controller
// reacts to: operational interface status, link-aggregation membership,
// SVI (broadcast-domain) IPv6 addressing, and per-port switching
// configuration. A Source delivers an initial snapshot of all four
// collections followed by an ordered stream of change events.
package topology

import (
	"fmt"
	"net/netip"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// OperStatus is the operational state of a physical or aggregate interface.
type OperStatus string

const (
	OperUp      OperStatus = "up"
	OperDown    OperStatus = "down"
	OperUnknown OperStatus = "unknown"
)

// InterfaceStatus is the operational record of a physical or aggregate port.
type InterfaceStatus struct {
	Name          string
	OperStatus    OperStatus
	RawLinkStatus string
}

// LagStatus describes a link-aggregation group and its member ports.
type LagStatus struct {
	Name    string
	Members []string
}

// SviStatus describes a broadcast-domain interface ("Vlan<N>") and the
// IPv6 addresses assigned to it. Link-local addresses are filtered out
// by the source; consumers only ever see routable prefixes.
type SviStatus struct {
	Name      string
	Addresses []netip.Prefix
}

// SwitchportMode is the L2 switching mode of a port.
type SwitchportMode string

const (
	ModeAccess SwitchportMode = "access"
	ModeTrunk  SwitchportMode = "trunk"
)

// SwitchportConfig is the L2 switching configuration of a port.
// Enabled is false for routed ports.
type SwitchportConfig struct {
	Name              string
	Mode              SwitchportMode
	AccessVlan        int
	TrunkAllowedVlans string // range syntax, e.g. "1,10-20,30"
	Enabled           bool
}

// Op is the kind of change an event describes.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// Event is a single change to one of the four collections. Exactly one of
// the payload pointers is set.
type Event struct {
	Op         Op
	Interface  *InterfaceStatus
	Lag        *LagStatus
	Svi        *SviStatus
	Switchport *SwitchportConfig
}

// Collection names the entity collection the event belongs to.
func (e Event) Collection() string {
	switch {
	case e.Interface != nil:
		return "interface"
	case e.Lag != nil:
		return "lag"
	case e.Svi != nil:
		return "svi"
	case e.Switchport != nil:
		return "switchport"
	}
	return "unknown"
}

// Entity returns the identifier of the affected entity.
func (e Event) Entity() string {
	switch {
	case e.Interface != nil:
		return e.Interface.Name
	case e.Lag != nil:
		return e.Lag.Name
	case e.Svi != nil:
		return e.Svi.Name
	case e.Switchport != nil:
		return e.Switchport.Name
	}
	return ""
}

// Snapshot is the current contents of all four collections, used to seed
// the controller's derived state before the event stream is consumed.
type Snapshot struct {
	Interfaces  []InterfaceStatus
	Lags        []LagStatus
	Svis        []SviStatus
	Switchports []SwitchportConfig
}

// SviPattern extracts a VLAN id from a broadcast-domain interface name.
// The pattern must contain exactly one capture group holding the numeric id.
type SviPattern struct {
	re *regexp.Regexp
}

// DefaultSviPattern matches EOS-style SVI names such as "Vlan30".
const DefaultSviPattern = `^Vlan(\d+)$`

// CompileSviPattern compiles a one-group SVI name pattern.
func CompileSviPattern(expr string) (SviPattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return SviPattern{}, err
	}
	return SviPattern{re: re}, nil
}

// MustSviPattern compiles expr or panics. For defaults known at compile time.
func MustSviPattern(expr string) SviPattern {
	p, err := CompileSviPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// VlanID returns the VLAN id embedded in name, if name matches the pattern.
func (p SviPattern) VlanID(name string) (int, bool) {
	if p.re == nil {
		return 0, false
	}
	m := p.re.FindStringSubmatch(name)
	if len(m) != 2 {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// RoutableV6 reports whether p is an IPv6 prefix the controller should
// permit: a real v6 address (not v4-mapped) outside fe80::/10.
func RoutableV6(p netip.Prefix) bool {
	a := p.Addr()
	return a.Is6() && !a.Is4In6() && !a.IsLinkLocalUnicast()
}

// RenderVlanRanges compresses VLAN ids into "1,10-20" range syntax.
// The inverse of controller-side range expansion.
func RenderVlanRanges(vids []int) string {
	if len(vids) == 0 {
		return ""
	}
	sorted := append([]int(nil), vids...)
	sort.Ints(sorted)
	var parts []string
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, v := range sorted[1:] {
		if v == prev {
			continue
		}
		if v == prev+1 {
			prev = v
			continue
		}
		flush()
		start, prev = v, v
	}
	flush()
	return strings.Join(parts, ",")
}
