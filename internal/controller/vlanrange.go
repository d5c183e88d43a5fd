package controller

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpandVlanRanges parses trunk allowed-VLAN syntax ("1,10-20,30") into the
// individual VLAN ids, in listed order. Whitespace around separators is
// tolerated; empty input yields nil. Malformed syntax is a data invariant
// violation and surfaces as an error.
func ExpandVlanRanges(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var vlans []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty element in vlan range %q", spec)
		}

		lo, hi, isRange := part, part, false
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, hi, isRange = part[:i], part[i+1:], true
		}

		start, err := parseVlanID(lo)
		if err != nil {
			return nil, fmt.Errorf("vlan range %q: %w", spec, err)
		}
		end := start
		if isRange {
			end, err = parseVlanID(hi)
			if err != nil {
				return nil, fmt.Errorf("vlan range %q: %w", spec, err)
			}
			if end < start {
				return nil, fmt.Errorf("vlan range %q: descending span %s", spec, part)
			}
		}
		for v := start; v <= end; v++ {
			vlans = append(vlans, v)
		}
	}
	return vlans, nil
}

func parseVlanID(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad vlan id %q", s)
	}
	if v < 1 || v > 4094 {
		return 0, fmt.Errorf("vlan id %d out of range", v)
	}
	return v, nil
}
