package watcher

import (
	"context"
	"errors"

	"gallwatch/internal/action"
	"gallwatch/internal/browser"
	"gallwatch/internal/gallery"
	"gallwatch/internal/identity"
)

// scriptedHarvester returns one result per call, repeating the last one.
type scriptedHarvester struct {
	results []gallery.HarvestResult
	calls   int
}

func harvestOf(ids ...identity.Identity) gallery.HarvestResult {
	return gallery.HarvestResult{Identities: identity.NewSet(ids...), PageCount: 1, PagesVisited: 1}
}

func (h *scriptedHarvester) Harvest(ctx context.Context, session browser.Session, threadUrl string) gallery.HarvestResult {
	idx := min(h.calls, len(h.results)-1)
	h.calls++
	result := h.results[idx]
	result.Identities = result.Identities.Clone()
	return result
}

// scriptedActor returns a fixed outcome per identity, Performed by default.
type scriptedActor struct {
	outcomes map[identity.Identity]action.Outcome
	loginErr error
	logins   int
	acted    []identity.Identity
}

func (a *scriptedActor) Login(ctx context.Context, session browser.Session, username, password string) error {
	a.logins++
	return a.loginErr
}

func (a *scriptedActor) Act(ctx context.Context, session browser.Session, id identity.Identity, threshold int, payload string) action.Result {
	a.acted = append(a.acted, id)
	outcome, ok := a.outcomes[id]
	if !ok {
		outcome = action.Performed
	}
	var err error
	if outcome == action.FailedTransient {
		err = errors.New("timeout")
	}
	return action.Result{Identity: id, Outcome: outcome, Err: err}
}

type failingStore struct {
	Store
	appendErr error
}

func (s failingStore) AppendSeen(thread identity.ThreadHandle, ids identity.Set) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Store.AppendSeen(thread, ids)
}
