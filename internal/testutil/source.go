package testutil

import (
	"context"

	"grimm.is/sixfence/internal/topology"
)

// ScriptedSource is a topology source driven by the test: Snapshot returns
// a fixed snapshot and Watch returns a channel the test feeds with Emit.
type ScriptedSource struct {
	Snap topology.Snapshot
	Err  error

	ch chan topology.Event
}

// NewScriptedSource creates a source serving the given snapshot.
func NewScriptedSource(snap topology.Snapshot) *ScriptedSource {
	return &ScriptedSource{
		Snap: snap,
		ch:   make(chan topology.Event, 64),
	}
}

func (s *ScriptedSource) Snapshot(ctx context.Context) (*topology.Snapshot, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	snap := s.Snap
	return &snap, nil
}

func (s *ScriptedSource) Watch(ctx context.Context) (<-chan topology.Event, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.ch, nil
}

// Emit queues an event for the watch channel.
func (s *ScriptedSource) Emit(e topology.Event) {
	s.ch <- e
}

// Close ends the watch stream.
func (s *ScriptedSource) Close() {
	close(s.ch)
}
