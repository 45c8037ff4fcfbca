// Package reconcile computes which harvested identities are new for a cycle and
// which of them are settled once the action phase has run.
package reconcile

import (
	"gallwatch/internal/action"
	"gallwatch/internal/identity"
)

// Reconcile returns harvested - (seen ∪ denied). It has no side effects and
// never mutates its inputs.
func Reconcile(harvested, seen, denied identity.Set) identity.Set {
	return harvested.Difference(seen, denied)
}

// Accepted builds the set of identities to append to the seen-log from the
// per-identity action results. Identities whose action failed transiently are
// left out so they show up as new again next cycle.
func Accepted(results []action.Result) identity.Set {
	out := identity.NewSet()
	for _, r := range results {
		if r.Outcome.Settled() {
			out.Add(r.Identity)
		}
	}
	return out
}

// Pending returns the identities that still need to be retried.
func Pending(results []action.Result) identity.Set {
	out := identity.NewSet()
	for _, r := range results {
		if !r.Outcome.Settled() {
			out.Add(r.Identity)
		}
	}
	return out
}
