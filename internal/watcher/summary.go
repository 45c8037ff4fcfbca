package watcher

import (
	"fmt"
	"io"

	"gallwatch/internal/action"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func (c *Controller) printSummary(report CycleReport) {
	t := newTable(c.deps.Out)
	t.SetTitle("cycle %s", report.Id)
	t.AppendHeader(table.Row{"Identity", "Outcome", "Detail"})

	counts := map[action.Outcome]int{}
	for _, r := range report.Results {
		counts[r.Outcome]++
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Identity, r.Outcome.String(), detail})
	}

	t.AppendFooter(table.Row{
		"",
		"performed / skipped / failed",
		fmt.Sprintf(
			"%d / %d / %d",
			counts[action.Performed],
			counts[action.SkippedIneligible]+counts[action.SkippedRestricted],
			counts[action.FailedTransient],
		),
	})
	t.Render()
}
