package testutil

import (
	"os"
	"testing"
)

// RequireVM skips the test if the SIXFENCE_VM_TEST environment variable is
// not set. This ensures that tests requiring real kernel capabilities
// (nftables, bridge VLAN filtering, netlink) are only run in the proper
// environment.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("SIXFENCE_VM_TEST") == "" {
		t.Skip("Skipping test: requires SIXFENCE_VM_TEST environment")
	}
}
