package acl

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner records command batches and plays back queued results.
type fakeRunner struct {
	batches [][]string
	results [][]json.RawMessage
	errs    []error
}

func (f *fakeRunner) RunCmds(_ context.Context, cmds []string) ([]json.RawMessage, error) {
	f.batches = append(f.batches, cmds)
	var res []json.RawMessage
	if len(f.results) > 0 {
		res = f.results[0]
		f.results = f.results[1:]
	}
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	return res, err
}

func TestEapiApplyRendering(t *testing.T) {
	runner := &fakeRunner{}
	store := NewEapiStore(runner)

	a := ACL{Name: "sixfence_Ethernet1", Rules: []Rule{
		{Seq: 10, Source: pfx("2001:db8:a::/64")},
		{Seq: 20, Source: pfx("2001:db8:b::/64")},
	}}
	require.NoError(t, store.Apply(context.Background(), "Ethernet1", a))

	require.Len(t, runner.batches, 1)
	require.Equal(t, []string{
		"enable",
		"configure",
		"no ipv6 access-list sixfence_Ethernet1",
		"ipv6 access-list sixfence_Ethernet1",
		"10 permit ipv6 2001:db8:a::/64 any",
		"20 permit ipv6 2001:db8:b::/64 any",
		"exit",
		"interface Ethernet1",
		"ipv6 traffic-filter sixfence_Ethernet1 in",
	}, runner.batches[0])
}

func TestEapiRemoveRendering(t *testing.T) {
	runner := &fakeRunner{}
	store := NewEapiStore(runner)

	require.NoError(t, store.Remove(context.Background(), "Ethernet1", "sixfence_Ethernet1"))

	require.Len(t, runner.batches, 1)
	require.Equal(t, []string{
		"enable",
		"configure",
		"interface Ethernet1",
		"no ipv6 traffic-filter sixfence_Ethernet1 in",
		"exit",
		"no ipv6 access-list sixfence_Ethernet1",
	}, runner.batches[0])
}

func TestEapiSweep(t *testing.T) {
	summary := json.RawMessage(`{
		"aclList": [
			{"name": "sixfence_Ethernet1", "configuredIngressIntfs": [{"name": "Ethernet1"}]},
			{"name": "sixfence_Ethernet3_1", "configuredIngressIntfs": [{"name": "Ethernet3/1"}]},
			{"name": "mgmt-only", "configuredIngressIntfs": [{"name": "Management1"}]}
		]
	}`)
	runner := &fakeRunner{
		results: [][]json.RawMessage{{json.RawMessage(`{}`), summary}},
	}
	store := NewEapiStore(runner)

	removed, err := store.Sweep(context.Background(), "sixfence")
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	require.Len(t, runner.batches, 2)
	require.Equal(t, []string{
		"enable",
		"configure",
		"interface Ethernet1",
		"no ipv6 traffic-filter sixfence_Ethernet1 in",
		"exit",
		"no ipv6 access-list sixfence_Ethernet1",
		"interface Ethernet3/1",
		"no ipv6 traffic-filter sixfence_Ethernet3_1 in",
		"exit",
		"no ipv6 access-list sixfence_Ethernet3_1",
	}, runner.batches[1])
}

func TestEapiSweepNothingToDo(t *testing.T) {
	runner := &fakeRunner{
		results: [][]json.RawMessage{{json.RawMessage(`{}`), json.RawMessage(`{"aclList": []}`)}},
	}
	store := NewEapiStore(runner)

	removed, err := store.Sweep(context.Background(), "sixfence")
	require.NoError(t, err)
	require.Zero(t, removed)
	// No config batch issued when nothing matched
	require.Len(t, runner.batches, 1)
}

func TestEapiSupports(t *testing.T) {
	runner := &fakeRunner{
		results: [][]json.RawMessage{{json.RawMessage(`{}`), json.RawMessage(`{"aclList": []}`)}},
	}
	store := NewEapiStore(runner)
	ok, err := store.Supports(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	runner = &fakeRunner{errs: []error{&EapiError{Code: 1002, Message: "invalid command"}}}
	store = NewEapiStore(runner)
	ok, err = store.Supports(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
