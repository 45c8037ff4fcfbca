// Package action defines the outcomes of the automated per-identity write.
package action

import "gallwatch/internal/identity"

type Outcome int

const (
	// Performed means the write went through, or the target had already been written to.
	Performed Outcome = iota
	// SkippedIneligible means the identity's activity score is below the threshold.
	SkippedIneligible
	// SkippedRestricted means the target explicitly disallows the write, this is permanent.
	SkippedRestricted
	// FailedTransient means an unexpected failure, the identity is retried next cycle.
	FailedTransient
)

func (o Outcome) String() string {
	switch o {
	case Performed:
		return "performed"
	case SkippedIneligible:
		return "skipped-ineligible"
	case SkippedRestricted:
		return "skipped-restricted"
	case FailedTransient:
		return "failed-transient"
	}
	return "unknown"
}

// Settled reports whether an identity with this outcome is recorded as seen.
func (o Outcome) Settled() bool {
	switch o {
	case Performed, SkippedIneligible, SkippedRestricted:
		return true
	}
	return false
}

// Result pairs an identity with the outcome of acting on it.
type Result struct {
	Identity identity.Identity
	Outcome  Outcome
	// Err is the cause of a non-performed outcome, if any.
	Err error
}
