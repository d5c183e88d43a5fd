//go:build linux
// +build linux

package topology

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"time"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"

	"grimm.is/sixfence/internal/logging"
)

// NetlinkSource implements Source on a Linux bridge. Operational status and
// bond (LAG) membership come from link notifications, SVI addressing from
// address notifications on interfaces matching the SVI pattern, and
// switching configuration from the kernel's per-port bridge VLAN table.
// The VLAN table has no notification channel, so it is polled.
type NetlinkSource struct {
	pattern      SviPattern
	pollInterval time.Duration
	logger       *logging.Logger

	// last seen switchport config per port name, for poll diffing
	lastConfig map[string]SwitchportConfig
}

// NetlinkSourceConfig configures a NetlinkSource.
type NetlinkSourceConfig struct {
	// SviPattern matches SVI device names; default "^vlan(\d+)$" (Linux
	// vlan devices are conventionally lower case).
	SviPattern string
	// PollInterval is the bridge VLAN table poll period. Default 2s.
	PollInterval time.Duration
	Logger       *logging.Logger
}

// NewNetlinkSource creates a Linux bridge topology source.
func NewNetlinkSource(cfg NetlinkSourceConfig) (*NetlinkSource, error) {
	expr := cfg.SviPattern
	if expr == "" {
		expr = `^vlan(\d+)$`
	}
	pattern, err := CompileSviPattern(expr)
	if err != nil {
		return nil, fmt.Errorf("bad svi pattern %q: %w", expr, err)
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("topology")
	}
	return &NetlinkSource{
		pattern:      pattern,
		pollInterval: interval,
		logger:       logger,
		lastConfig:   make(map[string]SwitchportConfig),
	}, nil
}

// Snapshot reads the current link, address, bond, and bridge VLAN state.
func (s *NetlinkSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}

	snap := &Snapshot{}
	byIndex := make(map[int]netlink.Link, len(links))
	for _, link := range links {
		byIndex[link.Attrs().Index] = link
	}

	bondMembers := make(map[string][]string)
	for _, link := range links {
		attrs := link.Attrs()

		if _, isSvi := s.pattern.VlanID(attrs.Name); isSvi {
			addrs, err := sviAddresses(link)
			if err != nil {
				return nil, err
			}
			snap.Svis = append(snap.Svis, SviStatus{Name: attrs.Name, Addresses: addrs})
			continue
		}

		snap.Interfaces = append(snap.Interfaces, InterfaceStatus{
			Name:          attrs.Name,
			OperStatus:    operStatus(attrs.OperState),
			RawLinkStatus: attrs.OperState.String(),
		})

		if attrs.MasterIndex != 0 {
			if master, ok := byIndex[attrs.MasterIndex]; ok && master.Type() == "bond" {
				name := master.Attrs().Name
				bondMembers[name] = append(bondMembers[name], attrs.Name)
			}
		}
	}
	for name, members := range bondMembers {
		sort.Strings(members)
		snap.Lags = append(snap.Lags, LagStatus{Name: name, Members: members})
	}

	configs, err := s.switchportConfigs(byIndex)
	if err != nil {
		return nil, err
	}
	snap.Switchports = configs
	for _, c := range configs {
		s.lastConfig[c.Name] = c
	}

	return snap, nil
}

// Watch merges link and address notifications with the bridge VLAN poll
// into one ordered event stream. The stream closes when ctx is done.
func (s *NetlinkSource) Watch(ctx context.Context) (<-chan Event, error) {
	linkCh := make(chan netlink.LinkUpdate, 64)
	if err := netlink.LinkSubscribe(linkCh, ctx.Done()); err != nil {
		return nil, fmt.Errorf("subscribing to link updates: %w", err)
	}
	addrCh := make(chan netlink.AddrUpdate, 64)
	if err := netlink.AddrSubscribe(addrCh, ctx.Done()); err != nil {
		return nil, fmt.Errorf("subscribing to address updates: %w", err)
	}

	out := make(chan Event, 64)
	go s.watchLoop(ctx, linkCh, addrCh, out)
	return out, nil
}

func (s *NetlinkSource) watchLoop(ctx context.Context, linkCh chan netlink.LinkUpdate, addrCh chan netlink.AddrUpdate, out chan<- Event) {
	defer close(out)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case update, ok := <-linkCh:
			if !ok {
				return
			}
			s.handleLinkUpdate(update, out)

		case update, ok := <-addrCh:
			if !ok {
				return
			}
			s.handleAddrUpdate(update, out)

		case <-ticker.C:
			s.pollSwitchports(out)
		}
	}
}

func (s *NetlinkSource) handleLinkUpdate(update netlink.LinkUpdate, out chan<- Event) {
	attrs := update.Link.Attrs()
	name := attrs.Name

	if _, isSvi := s.pattern.VlanID(name); isSvi {
		if update.Header.Type == unix.RTM_DELLINK {
			out <- Event{Op: OpRemove, Svi: &SviStatus{Name: name}}
		}
		return
	}

	op := OpUpdate
	if update.Header.Type == unix.RTM_DELLINK {
		op = OpRemove
	}
	out <- Event{Op: op, Interface: &InterfaceStatus{
		Name:          name,
		OperStatus:    operStatus(attrs.OperState),
		RawLinkStatus: attrs.OperState.String(),
	}}

	// Bond membership rides on the member's master index, so any link
	// change may alter a LAG. Re-derive the group the link points at.
	if update.Link.Type() == "bond" || attrs.MasterIndex != 0 {
		s.emitLagState(out)
	}
}

func (s *NetlinkSource) handleAddrUpdate(update netlink.AddrUpdate, out chan<- Event) {
	link, err := netlink.LinkByIndex(update.LinkIndex)
	if err != nil {
		return
	}
	name := link.Attrs().Name
	if _, isSvi := s.pattern.VlanID(name); !isSvi {
		return
	}

	// Re-list rather than patch: the notification carries one address but
	// the controller wants the full current set.
	addrs, err := sviAddresses(link)
	if err != nil {
		s.logger.Warn("listing svi addresses failed", "svi", name, "error", err)
		return
	}
	out <- Event{Op: OpUpdate, Svi: &SviStatus{Name: name, Addresses: addrs}}
}

// emitLagState re-reads all bonds and emits their current membership.
func (s *NetlinkSource) emitLagState(out chan<- Event) {
	links, err := netlink.LinkList()
	if err != nil {
		return
	}
	byIndex := make(map[int]netlink.Link, len(links))
	for _, link := range links {
		byIndex[link.Attrs().Index] = link
	}
	members := make(map[string][]string)
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.MasterIndex == 0 {
			continue
		}
		master, ok := byIndex[attrs.MasterIndex]
		if !ok || master.Type() != "bond" {
			continue
		}
		name := master.Attrs().Name
		members[name] = append(members[name], attrs.Name)
	}
	for _, link := range links {
		if link.Type() != "bond" {
			continue
		}
		name := link.Attrs().Name
		m := members[name]
		sort.Strings(m)
		out <- Event{Op: OpUpdate, Lag: &LagStatus{Name: name, Members: m}}
	}
}

func (s *NetlinkSource) pollSwitchports(out chan<- Event) {
	links, err := netlink.LinkList()
	if err != nil {
		return
	}
	byIndex := make(map[int]netlink.Link, len(links))
	for _, link := range links {
		byIndex[link.Attrs().Index] = link
	}
	configs, err := s.switchportConfigs(byIndex)
	if err != nil {
		s.logger.Warn("bridge vlan poll failed", "error", err)
		return
	}

	seen := make(map[string]bool, len(configs))
	for _, c := range configs {
		seen[c.Name] = true
		last, known := s.lastConfig[c.Name]
		if !known {
			s.lastConfig[c.Name] = c
			cc := c
			out <- Event{Op: OpAdd, Switchport: &cc}
			continue
		}
		if last != c {
			s.lastConfig[c.Name] = c
			cc := c
			out <- Event{Op: OpUpdate, Switchport: &cc}
		}
	}
	for name := range s.lastConfig {
		if !seen[name] {
			delete(s.lastConfig, name)
			out <- Event{Op: OpRemove, Switchport: &SwitchportConfig{Name: name}}
		}
	}
}

// switchportConfigs translates the kernel bridge VLAN table into switchport
// records: a port whose only VLAN is its PVID is an access port, a port
// with tagged VLANs is a trunk, and a port with no bridge master is routed
// (Enabled=false, emitted so the controller can track it).
func (s *NetlinkSource) switchportConfigs(byIndex map[int]netlink.Link) ([]SwitchportConfig, error) {
	table, err := netlink.BridgeVlanList()
	if err != nil {
		return nil, fmt.Errorf("listing bridge vlans: %w", err)
	}

	var configs []SwitchportConfig
	for index, link := range byIndex {
		attrs := link.Attrs()
		if _, isSvi := s.pattern.VlanID(attrs.Name); isSvi {
			continue
		}
		if link.Type() == "bridge" {
			continue
		}

		infos := table[int32(index)]
		if attrs.MasterIndex == 0 || len(infos) == 0 {
			configs = append(configs, SwitchportConfig{Name: attrs.Name, Enabled: false})
			continue
		}

		var pvid int
		var tagged []int
		for _, info := range infos {
			if info.Flags&nl.BRIDGE_VLAN_INFO_PVID != 0 {
				pvid = int(info.Vid)
			} else {
				tagged = append(tagged, int(info.Vid))
			}
		}

		cfg := SwitchportConfig{Name: attrs.Name, Enabled: true}
		if len(tagged) == 0 {
			cfg.Mode = ModeAccess
			cfg.AccessVlan = pvid
		} else {
			if pvid != 0 {
				tagged = append(tagged, pvid)
			}
			cfg.Mode = ModeTrunk
			cfg.TrunkAllowedVlans = RenderVlanRanges(tagged)
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}

// sviAddresses lists the routable IPv6 prefixes assigned to link.
func sviAddresses(link netlink.Link) ([]netip.Prefix, error) {
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V6)
	if err != nil {
		return nil, fmt.Errorf("listing addresses on %s: %w", link.Attrs().Name, err)
	}
	var out []netip.Prefix
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		ones, _ := a.Mask.Size()
		p := netip.PrefixFrom(addr.Unmap(), ones)
		if RoutableV6(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func operStatus(state netlink.LinkOperState) OperStatus {
	switch state {
	case netlink.OperUp:
		return OperUp
	case netlink.OperDown, netlink.OperLowerLayerDown:
		return OperDown
	default:
		return OperUnknown
	}
}
