package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gallwatch/internal/action"
	"gallwatch/internal/browser"
	"gallwatch/internal/components/chrono"
	"gallwatch/internal/components/telemetry"
	"gallwatch/internal/gallery"
	"gallwatch/internal/identity"
	"gallwatch/internal/notify"
	"gallwatch/internal/settings"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const threadUrl = "https://gall.dcinside.com/mgallery/board/view/?id=pokemontcgpocket&no=205860"
const thread identity.ThreadHandle = "205860"

type harness struct {
	dir        string
	store      identity.Store
	harvester  *scriptedHarvester
	actor      *scriptedActor
	sleeper    *chrono.FakeSleeper
	recorder   *telemetry.Recorder
	out        *bytes.Buffer
	controller *Controller
}

func writeLines(t *testing.T, path string, ids ...string) {
	contents := ""
	for _, id := range ids {
		contents += id + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func readSeen(t *testing.T, h harness) identity.Set {
	seen, err := h.store.LoadSeenLog(thread)
	require.NoError(t, err)
	return seen
}

func newHarness(t *testing.T, s settings.Settings, harvests ...gallery.HarvestResult) harness {
	dir := t.TempDir()
	recorder := telemetry.NewRecorder()
	h := harness{
		dir:       dir,
		store:     identity.NewStore(dir, "blacklist.txt", recorder),
		harvester: &scriptedHarvester{results: harvests},
		actor:     &scriptedActor{outcomes: map[identity.Identity]action.Outcome{}},
		sleeper:   &chrono.FakeSleeper{},
		recorder:  recorder,
		out:       &bytes.Buffer{},
	}
	if s.Url == "" {
		s.Url = threadUrl
	}
	h.controller = NewController(s, Dependencies{
		Session:   browser.NewFakeSession(),
		Harvester: h.harvester,
		Actor:     h.actor,
		Store:     h.store,
		Sleeper:   h.sleeper,
		Out:       h.out,
	}, recorder)
	return h
}

func TestCycleEndToEnd(t *testing.T) {
	h := newHarness(t, settings.Settings{Threshold: 100}, harvestOf("u1", "u2", "u3", "u4"))
	writeLines(t, filepath.Join(h.dir, "blacklist.txt"), "u1")
	writeLines(t, filepath.Join(h.dir, "205860.txt"), "u2")
	h.actor.outcomes["u4"] = action.FailedTransient

	require.NoError(t, h.controller.Init())
	report := h.controller.RunCycle(context.Background())

	if diff := cmp.Diff(identity.NewSet("u3", "u4"), report.New); diff != "" {
		t.Fatalf("unexpected new identities (-want +got):\n%s", diff)
	}
	require.Equal(t, []identity.Identity{"u3", "u4"}, h.actor.acted)
	require.Equal(t, identity.NewSet("u3"), report.Persisted)
	require.Equal(t, identity.NewSet("u2", "u3"), readSeen(t, h))
	require.Equal(t, identity.NewSet("u2", "u3"), h.controller.Seen())

	denylist, err := os.ReadFile(filepath.Join(h.dir, "blacklist.txt"))
	require.NoError(t, err)
	require.Equal(t, "u1\n", string(denylist))

	require.Contains(t, h.out.String(), "u4")
	require.Contains(t, h.out.String(), "failed-transient")
}

func TestTransientFailureIsRetried(t *testing.T) {
	h := newHarness(t, settings.Settings{}, harvestOf("u3", "u4"))
	h.actor.outcomes["u4"] = action.FailedTransient

	require.NoError(t, h.controller.Init())
	h.controller.RunCycle(context.Background())

	delete(h.actor.outcomes, "u4")
	h.actor.acted = nil
	report := h.controller.RunCycle(context.Background())

	require.Equal(t, []identity.Identity{"u4"}, h.actor.acted)
	require.Equal(t, identity.NewSet("u4"), report.Persisted)
	require.Equal(t, identity.NewSet("u3", "u4"), readSeen(t, h))
}

func TestSettledOutcomesArePersisted(t *testing.T) {
	h := newHarness(t, settings.Settings{}, harvestOf("quiet", "private", "active"))
	h.actor.outcomes["quiet"] = action.SkippedIneligible
	h.actor.outcomes["private"] = action.SkippedRestricted

	require.NoError(t, h.controller.Init())
	report := h.controller.RunCycle(context.Background())

	require.Equal(t, identity.NewSet("quiet", "private", "active"), report.Persisted)

	h.actor.acted = nil
	report = h.controller.RunCycle(context.Background())
	require.Empty(t, h.actor.acted)
	require.Equal(t, 0, report.New.Len())
	require.Equal(t, 1, h.actor.logins)
}

func TestLoginFailurePersistsNothing(t *testing.T) {
	h := newHarness(t, settings.Settings{}, harvestOf("u1", "u2"))
	h.actor.loginErr = errors.New("bad credentials")

	require.NoError(t, h.controller.Init())
	report := h.controller.RunCycle(context.Background())

	require.Error(t, report.LoginErr)
	require.Empty(t, h.actor.acted)
	require.Equal(t, 0, readSeen(t, h).Len())
	require.Len(t, h.recorder.Find("broken", report_controller_login), 1)

	h.actor.loginErr = nil
	report = h.controller.RunCycle(context.Background())
	require.Equal(t, identity.NewSet("u1", "u2"), report.Persisted)
}

func TestPersistFailureKeepsIdentitiesPending(t *testing.T) {
	h := newHarness(t, settings.Settings{}, harvestOf("u1"))
	store := failingStore{Store: h.store, appendErr: errors.New("disk full")}
	h.controller.deps.Store = store

	require.NoError(t, h.controller.Init())
	report := h.controller.RunCycle(context.Background())
	require.Error(t, report.PersistErr)
	require.Equal(t, 0, h.controller.Seen().Len())

	h.actor.acted = nil
	h.controller.RunCycle(context.Background())
	require.Equal(t, []identity.Identity{"u1"}, h.actor.acted)
}

func TestDegradedHarvestContinues(t *testing.T) {
	partial := harvestOf("u1")
	partial.Err = errors.New("navigation timeout")
	empty := gallery.HarvestResult{Err: errors.New("navigation timeout")}

	h := newHarness(t, settings.Settings{}, partial, empty)
	require.NoError(t, h.controller.Init())

	report := h.controller.RunCycle(context.Background())
	require.Equal(t, identity.NewSet("u1"), report.Persisted)

	report = h.controller.RunCycle(context.Background())
	require.Equal(t, 0, report.New.Len())
	require.Equal(t, identity.NewSet("u1"), readSeen(t, h))
	require.Len(t, h.recorder.Find("warning", report_controller_harvest), 2)
}

func TestSeenOnlyGrows(t *testing.T) {
	h := newHarness(t, settings.Settings{},
		harvestOf("a", "b"),
		harvestOf("b", "c"),
		harvestOf(),
		harvestOf("d", "a"),
	)
	h.actor.outcomes["c"] = action.FailedTransient

	require.NoError(t, h.controller.Init())
	previous := h.controller.Seen()
	for i := 0; i < 4; i++ {
		h.controller.RunCycle(context.Background())
		current := h.controller.Seen()
		require.True(t, previous.IsSubset(current), "cycle %d", i)
		require.True(t, current.IsSubset(readSeen(t, h)), "cycle %d", i)
		previous = current
	}
	require.Equal(t, identity.NewSet("a", "b", "d"), previous)
}

func TestInitRejectsUrlWithoutThread(t *testing.T) {
	h := newHarness(t, settings.Settings{Url: "https://gall.dcinside.com/mgallery/board/view/?id=pokemontcgpocket"})
	err := h.controller.Run(context.Background())
	require.ErrorIs(t, err, gallery.ErrMissingThread)
	require.Equal(t, 0, h.harvester.calls)
}

func TestRunTerminatesWithoutRepeat(t *testing.T) {
	h := newHarness(t, settings.Settings{Repeat: false, Interval: time.Minute}, harvestOf("u1"))

	var states []State
	h.controller.OnTransition = func(from, to State) {
		states = append(states, to)
	}

	require.NoError(t, h.controller.Run(context.Background()))
	require.Equal(t, 1, h.harvester.calls)
	require.Empty(t, h.sleeper.Slept())
	require.Equal(t, []State{StateHarvest, StateReconcile, StateAct, StatePersist, StateTerminate}, states)
	require.Equal(t, StateTerminate, h.controller.State())
}

func TestEmptyCycleStillPersists(t *testing.T) {
	h := newHarness(t, settings.Settings{Repeat: false}, harvestOf("u1"))
	writeLines(t, filepath.Join(h.dir, "205860.txt"), "u1")

	var states []State
	h.controller.OnTransition = func(from, to State) {
		states = append(states, to)
	}

	require.NoError(t, h.controller.Run(context.Background()))
	require.Equal(t, []State{StateHarvest, StateReconcile, StatePersist, StateTerminate}, states)
	require.Equal(t, 0, h.actor.logins)
	require.NotContains(t, h.out.String(), "saved")
	require.Equal(t, identity.NewSet("u1"), readSeen(t, h))
}

func TestTransientFailureIsReportedPending(t *testing.T) {
	h := newHarness(t, settings.Settings{}, harvestOf("u3", "u4", "u5"))
	h.actor.outcomes["u4"] = action.FailedTransient
	h.actor.outcomes["u5"] = action.FailedTransient

	require.NoError(t, h.controller.Init())
	report := h.controller.RunCycle(context.Background())

	require.Equal(t, identity.NewSet("u4", "u5"), report.Pending)
	require.Contains(t, h.out.String(), "retrying next cycle: u4, u5")
}

func TestPersistOnlyWritesNewIdentities(t *testing.T) {
	h := newHarness(t, settings.Settings{})
	require.NoError(t, h.controller.Init())

	persisted, pending, err := h.controller.persist(identity.NewSet("u1"), []action.Result{
		{Identity: "u1", Outcome: action.Performed},
		{Identity: "stranger", Outcome: action.Performed},
	})
	require.NoError(t, err)
	require.Equal(t, identity.NewSet("u1"), persisted)
	require.Equal(t, 0, pending.Len())
	require.Equal(t, identity.NewSet("u1"), readSeen(t, h))
	require.Len(t, h.recorder.Find("broken", report_controller_persist), 1)
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	h := newHarness(t, settings.Settings{Repeat: true, Interval: 5 * time.Second}, harvestOf("u1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sleeper.OnSleep = func(d time.Duration) {
		if len(h.sleeper.Slept()) == 3 {
			cancel()
		}
	}

	require.NoError(t, h.controller.Run(ctx))
	require.Equal(t, 3, h.harvester.calls)
	require.Equal(t, []time.Duration{settings.MinInterval, settings.MinInterval, settings.MinInterval}, h.sleeper.Slept())
	require.Contains(t, h.out.String(), "waiting 30 seconds...")
	require.Equal(t, StateTerminate, h.controller.State())
}

func TestPreviewDoesNotActOrPersist(t *testing.T) {
	h := newHarness(t, settings.Settings{}, harvestOf("u1", "u2"))
	writeLines(t, filepath.Join(h.dir, "205860.txt"), "u1")

	require.NoError(t, h.controller.Init())
	report := h.controller.Preview(context.Background())

	require.Equal(t, identity.NewSet("u2"), report.New)
	require.Zero(t, h.actor.logins)
	require.Equal(t, identity.NewSet("u1"), readSeen(t, h))
}

type recordingNotifier struct {
	reports []notify.Report
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, report notify.Report) error {
	n.reports = append(n.reports, report)
	return n.err
}

func TestNotifierFailureDoesNotAffectCycle(t *testing.T) {
	h := newHarness(t, settings.Settings{}, harvestOf("u1"))
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	h.controller.deps.Notifier = notifier

	require.NoError(t, h.controller.Init())
	report := h.controller.RunCycle(context.Background())

	require.Len(t, notifier.reports, 1)
	require.Equal(t, report.Id, notifier.reports[0].CycleId)
	require.Equal(t, identity.NewSet("u1"), report.Persisted)
	require.Len(t, h.recorder.Find("warning", report_controller_notify), 1)
}

func TestRunWithRealHarvester(t *testing.T) {
	dir := t.TempDir()
	recorder := telemetry.NewRecorder()
	writeLines(t, filepath.Join(dir, "blacklist.txt"), "u1")

	page := func(current int, ids ...string) string {
		var b strings.Builder
		b.WriteString(`<html><body><div class="cmt_paging">`)
		for p := 1; p <= 2; p++ {
			if p == current {
				fmt.Fprintf(&b, "<em>%d</em>", p)
			} else {
				fmt.Fprintf(&b, `<a href="javascript:viewComments(%d, 'D');">%d</a>`, p, p)
			}
		}
		b.WriteString(`</div><ul>`)
		for _, id := range ids {
			fmt.Fprintf(&b, `<li class="ub-content"><span class="gall_writer ub-writer" data-uid="%s"></span></li>`, id)
		}
		b.WriteString(`</ul></body></html>`)
		return b.String()
	}

	session := browser.NewFakeSession()
	session.Pages[threadUrl] = page(1, "u1", "u2")
	session.Scripts["viewComments(2, 'D')"] = page(2, "u3")

	actor := &scriptedActor{outcomes: map[identity.Identity]action.Outcome{}}
	store := identity.NewStore(dir, "blacklist.txt", recorder)
	controller := NewController(settings.Settings{Url: threadUrl}, Dependencies{
		Session:   session,
		Harvester: gallery.NewHarvester(gallery.HarvesterOptions{}, recorder),
		Actor:     actor,
		Store:     store,
		Sleeper:   &chrono.FakeSleeper{},
	}, recorder)

	require.NoError(t, controller.Run(context.Background()))
	require.Equal(t, []identity.Identity{"u2", "u3"}, actor.acted)

	seen, err := store.LoadSeenLog(thread)
	require.NoError(t, err)
	require.Equal(t, identity.NewSet("u2", "u3"), seen)
}
