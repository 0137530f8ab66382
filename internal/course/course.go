// Package course defines the host-side collaborator contracts the map
// engine consumes: the module registry, the completion source and the group
// resolver. The engine never performs I/O through these interfaces; the
// caller resolves them into immutable snapshots before a processing run.
package course

import (
	"context"
	"time"
)

// CompletionState is the per-member completion status of a module.
type CompletionState int

const (
	Incomplete CompletionState = iota
	Complete
	CompletePass
	CompleteFail
)

// Module is a resolved course module a place can link to.
type Module struct {
	ID                string
	Name              string
	ViewURL           string // empty when the module has no view page
	Visible           bool
	StealthReachable  bool
	Available         bool
	PassGradeRequired bool
}

// ModuleRegistry resolves module references. Implementations are snapshots:
// lookups are pure and answer from already-fetched data.
type ModuleRegistry interface {
	// Resolve returns the module for the id, or false if the reference dangles.
	Resolve(moduleID string) (*Module, bool)
}

// CompletionSource answers per-member completion state, also from an
// immutable snapshot taken before the run.
type CompletionSource interface {
	State(moduleID, memberID string) CompletionState
	// Timestamp returns when the member completed the module, if ever.
	Timestamp(moduleID, memberID string) (time.Time, bool)
}

// GroupResolver expands a group into its member identities. This is the one
// collaborator living at the I/O edge; it runs before the oracle exists.
type GroupResolver interface {
	MembersOf(ctx context.Context, groupID string) ([]string, error)
}
