package course

import (
	"context"
	"time"
)

// MemoryRegistry is a ModuleRegistry over a fixed module set.
type MemoryRegistry struct {
	Modules map[string]*Module
}

func NewMemoryRegistry(mods ...*Module) *MemoryRegistry {
	r := &MemoryRegistry{Modules: make(map[string]*Module, len(mods))}
	for _, m := range mods {
		r.Modules[m.ID] = m
	}
	return r
}

func (r *MemoryRegistry) Resolve(moduleID string) (*Module, bool) {
	m, ok := r.Modules[moduleID]
	return m, ok
}

type memberKey struct {
	module string
	member string
}

// MemorySource is a CompletionSource over fixed state.
type MemorySource struct {
	states map[memberKey]CompletionState
	stamps map[memberKey]time.Time
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		states: make(map[memberKey]CompletionState),
		stamps: make(map[memberKey]time.Time),
	}
}

// Set records a member's state for a module, optionally with a timestamp.
func (s *MemorySource) Set(moduleID, memberID string, state CompletionState, at time.Time) {
	key := memberKey{module: moduleID, member: memberID}
	s.states[key] = state
	if !at.IsZero() {
		s.stamps[key] = at
	}
}

func (s *MemorySource) State(moduleID, memberID string) CompletionState {
	return s.states[memberKey{module: moduleID, member: memberID}]
}

func (s *MemorySource) Timestamp(moduleID, memberID string) (time.Time, bool) {
	at, ok := s.stamps[memberKey{module: moduleID, member: memberID}]
	return at, ok
}

// MemoryGroups is a GroupResolver over fixed membership.
type MemoryGroups struct {
	Groups map[string][]string
}

func (g *MemoryGroups) MembersOf(_ context.Context, groupID string) ([]string, error) {
	return g.Groups[groupID], nil
}
