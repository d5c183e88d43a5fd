//go:build !linux
// +build !linux

package topology

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"grimm.is/sixfence/internal/logging"
)

// ErrNotSupported is returned when the netlink source is used off Linux.
var ErrNotSupported = fmt.Errorf("netlink topology source not supported on %s", runtime.GOOS)

// NetlinkSource is a stub for non-Linux systems.
type NetlinkSource struct{}

// NetlinkSourceConfig configures a NetlinkSource.
type NetlinkSourceConfig struct {
	SviPattern   string
	PollInterval time.Duration
	Logger       *logging.Logger
}

// NewNetlinkSource creates a stub topology source.
func NewNetlinkSource(cfg NetlinkSourceConfig) (*NetlinkSource, error) {
	return &NetlinkSource{}, nil
}

// Snapshot is not supported off Linux.
func (s *NetlinkSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	return nil, ErrNotSupported
}

// Watch is not supported off Linux.
func (s *NetlinkSource) Watch(ctx context.Context) (<-chan Event, error) {
	return nil, ErrNotSupported
}
