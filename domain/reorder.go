package domain

import (
	"fmt"
	"time"
)

// ValidationError marks input the caller can fix; handlers map it to a
// client-error response.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// ReorderPlan is the desired final arrangement of a board: one ordered id
// sequence per status. A missing or empty sequence leaves that column's
// current members untouched.
type ReorderPlan map[Status][]string

// Validate checks the plan against the project's current items. Every
// referenced id must exist and appear at most once across all sequences.
func (p ReorderPlan) Validate(items []Item) error {
	known := make(map[string]struct{}, len(items))
	for _, it := range items {
		known[it.ID] = struct{}{}
	}
	seen := make(map[string]Status, len(items))
	for st, ids := range p {
		if !st.Valid() {
			return ValidationError(fmt.Sprintf("invalid status %q", st))
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return ValidationError(fmt.Sprintf("unknown item id %q", id))
			}
			if prev, dup := seen[id]; dup {
				return ValidationError(fmt.Sprintf("item %q listed twice (in %q and %q)", id, prev, st))
			}
			seen[id] = st
		}
	}
	return nil
}

// Apply rewrites status and position for every item the plan references:
// status becomes the owning column, position becomes index+1 within its
// sequence. Items absent from every sequence are returned unchanged. The
// input slice is not mutated.
func (p ReorderPlan) Apply(items []Item, now time.Time) []Item {
	target := make(map[string]Item, len(items))
	for st, ids := range p {
		for i, id := range ids {
			target[id] = Item{Status: st, Position: i + 1}
		}
	}
	out := make([]Item, len(items))
	for i, it := range items {
		if t, ok := target[it.ID]; ok {
			it.Status = t.Status
			it.Position = t.Position
			it.UpdatedAt = now
		}
		out[i] = it
	}
	return out
}
