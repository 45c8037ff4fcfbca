package gallery

import (
	"context"
	"fmt"
	"io"
	"time"

	"gallwatch/internal/browser"
	"gallwatch/internal/components/assert"
	"gallwatch/internal/components/telemetry"
	"gallwatch/internal/identity"
	"gallwatch/lib/htmlutil"
	"gallwatch/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("gallwatch/internal/gallery")

const (
	report_harvester_harvest = "harvester.harvest"
	report_harvester_parse   = "harvester.parse-page"
)

type HarvesterOptions struct {
	// NavigationSettle is waited after loading the thread.
	NavigationSettle time.Duration
	// TransitionSettle is waited after each in-place page transition.
	TransitionSettle time.Duration
	// Out receives human readable progress lines, nil discards them.
	Out io.Writer
}

// Harvester walks every comment page of a thread and collects the writers.
type Harvester struct {
	opts HarvesterOptions
	tel  telemetry.API
}

func NewHarvester(opts HarvesterOptions, tel telemetry.API) Harvester {
	assert.NotNil(tel)
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return Harvester{
		opts: opts,
		tel:  telemetry.NewScopedAPI("gallery", tel),
	}
}

// HarvestResult is the outcome of one harvest pass.
type HarvestResult struct {
	Identities   identity.Set
	PageCount    int
	Signal       PageSignal
	PagesVisited int
	// Err is set when the walk stopped early. Identities then holds whatever
	// was accumulated, which callers must not read as "nothing new".
	Err error
}

func (r HarvestResult) Degraded() bool {
	return r.Err != nil
}

// Harvest loads the thread, resolves the page count from the first comment page
// and visits every page once in increasing order. Failures never propagate,
// they end the walk and are recorded on the result.
func (h Harvester) Harvest(ctx context.Context, session browser.Session, threadUrl string) HarvestResult {
	ctx, span := tracer.Start(ctx, "Harvester.Harvest")
	defer span.End()

	result := HarvestResult{Identities: identity.NewSet(), PageCount: 1, Signal: SignalNone}
	fail := func(err error) HarvestResult {
		h.tel.ReportBroken(report_harvester_harvest, err, threadUrl, result.PagesVisited)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result.Err = err
		return result
	}

	fmt.Fprintf(h.opts.Out, "loading %s\n", threadUrl)
	err := session.Navigate(ctx, threadUrl)
	if err != nil {
		return fail(fmt.Errorf("load thread: %w", err))
	}
	err = session.Settle(ctx, h.opts.NavigationSettle)
	if err != nil {
		return fail(fmt.Errorf("settle after load: %w", err))
	}

	for page := 1; ; page++ {
		fmt.Fprintf(h.opts.Out, "reading comment page %d...\n", page)

		markup, err := session.Markup(ctx)
		if err != nil {
			return fail(fmt.Errorf("read page %d: %w", page, err))
		}

		doc, err := htmlutil.ParseDocument(markup)
		if err != nil {
			h.tel.ReportWarning(report_harvester_parse, err, page)
		} else {
			if page == 1 {
				result.PageCount, result.Signal = ResolvePageCount(doc)
				h.tel.ReportDebug("resolved page count", result.PageCount, string(result.Signal))
			}
			for _, id := range ExtractIdentities(doc) {
				result.Identities.Add(id)
			}
		}
		result.PagesVisited = page

		if page >= result.PageCount {
			break
		}

		err = session.RunScript(ctx, TransitionCommand(page+1))
		if err != nil {
			return fail(fmt.Errorf("switch to page %d: %w", page+1, err))
		}
		err = session.Settle(ctx, h.opts.TransitionSettle)
		if err != nil {
			return fail(fmt.Errorf("settle on page %d: %w", page+1, err))
		}
	}

	span.SetAttributes(
		attribute.Int("page_count", result.PageCount),
		attribute.Int("identities", result.Identities.Len()),
	)
	h.tel.ReportCount("harvested", int64(result.Identities.Len()))
	return result
}

// writerEntry is the identity extracted from one comment entry, absent when
// the entry has none (deleted, anonymous, malformed).
type writerEntry struct {
	identity identity.Identity
	present  bool
}

func extractEntry(li *goquery.Selection) writerEntry {
	uid, ok := li.Find(selectorWriter).First().Attr(attrWriterUid)
	if !ok {
		return writerEntry{}
	}
	uid = textutil.NormalizeToken(uid)
	if uid == "" {
		return writerEntry{}
	}
	return writerEntry{identity: identity.Identity(uid), present: true}
}

// ExtractIdentities returns the writer identity of every comment entry on the
// page, in document order and possibly with repeats. Entries without one are skipped.
func ExtractIdentities(doc *goquery.Document) []identity.Identity {
	var entries []writerEntry
	doc.Find(selectorCommentEntry).Each(func(_ int, li *goquery.Selection) {
		entries = append(entries, extractEntry(li))
	})

	var out []identity.Identity
	for _, e := range entries {
		if e.present {
			out = append(out, e.identity)
		}
	}
	return out
}
