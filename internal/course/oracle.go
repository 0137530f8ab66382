package course

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Oracle decides completion for one viewing identity: a single user, or a
// group resolved to its member list.
type Oracle struct {
	source  CompletionSource
	members []string
}

// NewOracle builds an oracle for the given viewer. When groupID is set the
// group's members are consulted; an empty or unset group falls back to the
// solitary user.
func NewOracle(ctx context.Context, source CompletionSource, groups GroupResolver, userID, groupID string) (*Oracle, error) {
	members := []string{userID}
	if groupID != "" && groups != nil {
		ms, err := groups.MembersOf(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("resolve group %s: %w", groupID, err)
		}
		if len(ms) > 0 {
			members = ms
		}
	}
	return &Oracle{source: source, members: members}, nil
}

// NewOracleForMembers builds an oracle over an already-resolved member list.
func NewOracleForMembers(source CompletionSource, members []string) *Oracle {
	return &Oracle{source: source, members: members}
}

// IsCompleted reports whether any member has completed the module. A
// completed-but-failed state counts only when the module has no pass-grade
// completion requirement, so grading edge cases never block progression.
func (o *Oracle) IsCompleted(mod *Module) bool {
	for _, member := range o.members {
		switch o.source.State(mod.ID, member) {
		case Complete, CompletePass:
			return true
		case CompleteFail:
			if !mod.PassGradeRequired {
				return true
			}
		}
	}
	return false
}

// CompletionOrder returns the ids of the given modules sorted by the
// earliest qualifying completion timestamp across all members, ascending.
// Only complete and complete-with-pass states qualify here; unlike
// IsCompleted there is no fail-without-passgrade exception. Modules without
// a qualifying timestamp are dropped. Ties keep the input order.
func (o *Oracle) CompletionOrder(mods []*Module) []string {
	type entry struct {
		id string
		at time.Time
	}

	var entries []entry
	for _, mod := range mods {
		var earliest time.Time
		found := false
		for _, member := range o.members {
			state := o.source.State(mod.ID, member)
			if state != Complete && state != CompletePass {
				continue
			}
			at, ok := o.source.Timestamp(mod.ID, member)
			if !ok {
				continue
			}
			if !found || at.Before(earliest) {
				earliest = at
				found = true
			}
		}
		if found {
			entries = append(entries, entry{id: mod.ID, at: earliest})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// Members returns the resolved member identities the oracle consults.
func (o *Oracle) Members() []string {
	return o.members
}
