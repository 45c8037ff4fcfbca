// Package identity holds the forum user identity types and the flat-file store
// for the global denylist and the per-thread seen-logs.
package identity

import (
	"slices"
)

// Identity is an opaque token identifying a forum user, it is never parsed.
type Identity string

// ThreadHandle is the numeric identifier of a monitored comment thread.
type ThreadHandle string

// Set is an unordered set of identities. Iteration helpers return a sorted
// order so that logs and files are deterministic.
type Set map[Identity]struct{}

func NewSet(ids ...Identity) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Add(id Identity) {
	s[id] = struct{}{}
}

func (s Set) Has(id Identity) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []Identity {
	out := make([]Identity, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Union returns a new set containing the members of s and every other set.
func (s Set) Union(others ...Set) Set {
	out := s.Clone()
	for _, other := range others {
		for id := range other {
			out[id] = struct{}{}
		}
	}
	return out
}

// Difference returns a new set with the members of s that are in none of the others.
func (s Set) Difference(others ...Set) Set {
	out := make(Set)
outer:
	for id := range s {
		for _, other := range others {
			if other.Has(id) {
				continue outer
			}
		}
		out[id] = struct{}{}
	}
	return out
}

// IsSubset reports whether every member of s is also in other.
func (s Set) IsSubset(other Set) bool {
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}
