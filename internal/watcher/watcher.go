// Package watcher drives the polling cycle: harvest the thread, reconcile the
// harvest against what is already known, act on the new identities, persist
// the settled ones and either sleep and repeat or stop.
package watcher

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gallwatch/internal/action"
	"gallwatch/internal/browser"
	"gallwatch/internal/components/assert"
	"gallwatch/internal/components/chrono"
	"gallwatch/internal/components/telemetry"
	"gallwatch/internal/gallery"
	"gallwatch/internal/identity"
	"gallwatch/internal/notify"
	"gallwatch/internal/reconcile"
	"gallwatch/internal/settings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = telemetry.Tracer("gallwatch/internal/watcher")
	meter  = otel.Meter("gallwatch/internal/watcher")
)

var (
	harvestedCounter, _ = meter.Int64Counter("watcher.harvested_identities")
	newCounter, _       = meter.Int64Counter("watcher.new_identities")
	outcomeCounter, _   = meter.Int64Counter("watcher.action_outcomes")
)

const (
	report_controller_init    = "controller.init"
	report_controller_harvest = "controller.harvest"
	report_controller_login   = "controller.login"
	report_controller_persist = "controller.persist"
	report_controller_notify  = "controller.notify"
)

type Harvester interface {
	Harvest(ctx context.Context, session browser.Session, threadUrl string) gallery.HarvestResult
}

type Actor interface {
	Login(ctx context.Context, session browser.Session, username, password string) error
	Act(ctx context.Context, session browser.Session, id identity.Identity, threshold int, payload string) action.Result
}

type Store interface {
	LoadDenyList() (identity.Set, error)
	LoadSeenLog(thread identity.ThreadHandle) (identity.Set, error)
	AppendSeen(thread identity.ThreadHandle, ids identity.Set) error
}

type State int

const (
	StateInit State = iota
	StateHarvest
	StateReconcile
	StateAct
	StatePersist
	StateRepeat
	StateTerminate
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateHarvest:
		return "harvest"
	case StateReconcile:
		return "reconcile"
	case StateAct:
		return "act"
	case StatePersist:
		return "persist"
	case StateRepeat:
		return "repeat"
	case StateTerminate:
		return "terminate"
	}
	return "unknown"
}

type Dependencies struct {
	Session   browser.Session
	Harvester Harvester
	Actor     Actor
	Store     Store
	// Notifier is optional.
	Notifier notify.Notifier
	Sleeper  chrono.Sleeper
	// Out receives status lines and cycle summaries, nil discards them.
	Out io.Writer
}

// Controller owns the in-memory denylist and seen-log of one thread. It is not
// safe for concurrent use, cycles run strictly one after another.
type Controller struct {
	settings settings.Settings
	deps     Dependencies
	tel      telemetry.API

	state  State
	thread identity.ThreadHandle
	denied identity.Set
	seen   identity.Set
	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to State)
}

func NewController(s settings.Settings, deps Dependencies, tel telemetry.API) *Controller {
	assert.NotNil(deps.Session)
	assert.NotNil(deps.Harvester)
	assert.NotNil(deps.Store)
	assert.NotNil(deps.Sleeper)
	assert.NotNil(tel)

	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	s.Interval = max(s.Interval, settings.MinInterval)
	assert.Positive(s.Interval)

	return &Controller{
		settings: s,
		deps:     deps,
		tel:      telemetry.NewScopedAPI("watcher", tel),
		state:    StateInit,
	}
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Thread() identity.ThreadHandle {
	return c.thread
}

// Seen returns a copy of the in-memory seen-log.
func (c *Controller) Seen() identity.Set {
	return c.seen.Clone()
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	c.tel.ReportDebug("state transition", from.String(), to.String())
	if c.OnTransition != nil {
		c.OnTransition(from, to)
	}
}

func (c *Controller) printf(format string, args ...any) {
	fmt.Fprintf(c.deps.Out, format, args...)
}

// Init resolves the thread and loads the denylist and its seen-log. Every
// error returned here is fatal to the run.
func (c *Controller) Init() error {
	thread, err := gallery.ParseThread(c.settings.Url)
	if err != nil {
		c.tel.ReportBroken(report_controller_init, err, c.settings.Url)
		return err
	}
	c.thread = thread

	denied, err := c.deps.Store.LoadDenyList()
	if err != nil {
		return fmt.Errorf("load denylist: %w", err)
	}
	c.printf("loaded denylist: %d identities\n", denied.Len())

	seen, err := c.deps.Store.LoadSeenLog(thread)
	if err != nil {
		return fmt.Errorf("load seen-log: %w", err)
	}
	c.printf("loaded %s.txt: %d identities\n", thread, seen.Len())

	c.denied = denied
	c.seen = seen
	return nil
}

// CycleReport describes one finished cycle.
type CycleReport struct {
	Id      string
	Harvest gallery.HarvestResult
	// New is harvested - (seen + denied).
	New     identity.Set
	Results []action.Result
	// LoginErr is set when signing in failed, no action was attempted then.
	LoginErr error
	// Persisted is what was appended to the seen-log.
	Persisted identity.Set
	// Pending is what failed transiently and shows up as new next cycle.
	Pending    identity.Set
	PersistErr error
}

// Preview harvests and reconciles once without acting or persisting anything.
// Init must have succeeded.
func (c *Controller) Preview(ctx context.Context) CycleReport {
	assert.NotEmptyStr(string(c.thread))

	report := CycleReport{Id: uuid.NewString()}
	report.Harvest = c.harvest(ctx)
	report.New = c.reconcile(report.Harvest)
	return report
}

func (c *Controller) harvest(ctx context.Context) gallery.HarvestResult {
	c.transition(StateHarvest)
	result := c.deps.Harvester.Harvest(ctx, c.deps.Session, c.settings.Url)
	if result.Identities == nil {
		result.Identities = identity.NewSet()
	}
	if result.Degraded() {
		c.tel.ReportWarning(report_controller_harvest, result.Err)
		c.printf("harvest stopped early after %d page(s), continuing with %d identities.\n", result.PagesVisited, result.Identities.Len())
	}
	harvestedCounter.Add(ctx, int64(result.Identities.Len()), metric.WithAttributes(attribute.String("thread", string(c.thread))))
	return result
}

func (c *Controller) reconcile(harvest gallery.HarvestResult) identity.Set {
	c.transition(StateReconcile)
	fresh := reconcile.Reconcile(harvest.Identities, c.seen, c.denied)
	if fresh.Len() == 0 {
		c.printf("no new identities.\n")
	} else {
		c.printf("new identities: %s\n", joinIdentities(fresh))
	}
	return fresh
}

// RunCycle runs HARVEST, RECONCILE, ACT and PERSIST once. Init must have succeeded.
func (c *Controller) RunCycle(ctx context.Context) CycleReport {
	assert.NotEmptyStr(string(c.thread))
	assert.NotNil(c.deps.Actor)

	report := CycleReport{Id: uuid.NewString(), Persisted: identity.NewSet()}
	ctx, span := tracer.Start(ctx, "Controller.RunCycle")
	defer span.End()
	span.SetAttributes(
		attribute.String("cycle_id", report.Id),
		attribute.String("thread", string(c.thread)),
	)

	report.Harvest = c.harvest(ctx)
	report.New = c.reconcile(report.Harvest)
	newCounter.Add(ctx, int64(report.New.Len()))
	if report.New.Len() == 0 {
		report.Persisted, report.Pending, report.PersistErr = c.persist(report.New, nil)
		return report
	}

	report.Results, report.LoginErr = c.act(ctx, report.New)
	if report.LoginErr != nil {
		return report
	}

	report.Persisted, report.Pending, report.PersistErr = c.persist(report.New, report.Results)
	c.printSummary(report)

	err := c.deps.Notifier.Notify(ctx, notify.Report{
		CycleId: report.Id,
		Thread:  c.thread,
		Results: report.Results,
	})
	if err != nil {
		c.tel.ReportWarning(report_controller_notify, err)
	}
	return report
}

func (c *Controller) act(ctx context.Context, fresh identity.Set) ([]action.Result, error) {
	c.transition(StateAct)

	err := c.deps.Actor.Login(ctx, c.deps.Session, c.settings.Username, c.settings.Password)
	if err != nil {
		c.tel.ReportBroken(report_controller_login, err)
		c.printf("something went wrong while signing in, retrying next cycle.\n")
		return nil, err
	}

	results := make([]action.Result, 0, fresh.Len())
	for _, id := range fresh.Sorted() {
		result := c.deps.Actor.Act(ctx, c.deps.Session, id, c.settings.Threshold, c.settings.Payload)
		if result.Outcome == action.FailedTransient {
			c.printf("something went wrong while handling '%s'.\n", id)
		}
		outcomeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result.Outcome.String())))
		results = append(results, result)
	}
	return results, nil
}

// persist appends the settled identities and only then folds them into the
// in-memory seen-log, a failed write leaves them to be retried. Only members
// of fresh are ever written.
func (c *Controller) persist(fresh identity.Set, results []action.Result) (persisted, pending identity.Set, err error) {
	c.transition(StatePersist)

	accepted := reconcile.Accepted(results)
	pending = reconcile.Pending(results)
	if !accepted.IsSubset(fresh) {
		stray := accepted.Difference(fresh)
		c.tel.ReportBroken(report_controller_persist, "results for identities that were not new", stray.Sorted())
		accepted = accepted.Difference(stray)
	}

	err = c.deps.Store.AppendSeen(c.thread, accepted)
	if err != nil {
		c.tel.ReportBroken(report_controller_persist, err, string(c.thread))
		return identity.NewSet(), fresh.Clone(), err
	}
	c.seen = c.seen.Union(accepted)

	if accepted.Len() > 0 {
		c.printf("saved %d new identities to %s.txt\n", accepted.Len(), c.thread)
	}
	if pending.Len() > 0 {
		c.printf("retrying next cycle: %s\n", joinIdentities(pending))
	}
	return accepted, pending, nil
}

func joinIdentities(ids identity.Set) string {
	out := make([]string, 0, ids.Len())
	for _, id := range ids.Sorted() {
		out = append(out, string(id))
	}
	return strings.Join(out, ", ")
}

// Run initializes the controller and cycles until the repeat flag is off or
// ctx is cancelled. Only initialization errors are returned.
func (c *Controller) Run(ctx context.Context) error {
	err := c.Init()
	if err != nil {
		return err
	}

	for {
		c.RunCycle(ctx)

		if !c.settings.Repeat {
			c.transition(StateTerminate)
			c.printf("repeat is off, stopping.\n")
			return nil
		}

		c.transition(StateRepeat)
		c.printf("waiting %d seconds...\n", int(c.settings.Interval.Seconds()))
		err = c.deps.Sleeper.Sleep(ctx, c.settings.Interval)
		if err != nil || ctx.Err() != nil {
			c.transition(StateTerminate)
			c.printf("stopping.\n")
			return nil
		}
	}
}
