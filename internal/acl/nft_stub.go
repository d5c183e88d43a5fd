//go:build !linux
// +build !linux

package acl

import (
	"context"
	"fmt"
	"runtime"
)

// ErrNFTNotSupported is returned when the nftables backend is used off Linux.
var ErrNFTNotSupported = fmt.Errorf("nftables backend not supported on %s", runtime.GOOS)

// NFTStore is a stub for non-Linux systems.
type NFTStore struct{}

// NewNFTStore creates a stub nftables store.
func NewNFTStore(tableName string) (*NFTStore, error) {
	return &NFTStore{}, nil
}

// Supports always reports false off Linux.
func (s *NFTStore) Supports(context.Context) (bool, error) {
	return false, nil
}

// Apply is not supported off Linux.
func (s *NFTStore) Apply(context.Context, string, ACL) error {
	return ErrNFTNotSupported
}

// Remove is not supported off Linux.
func (s *NFTStore) Remove(context.Context, string, string) error {
	return ErrNFTNotSupported
}

// Sweep is not supported off Linux.
func (s *NFTStore) Sweep(context.Context, string) (int, error) {
	return 0, ErrNFTNotSupported
}
