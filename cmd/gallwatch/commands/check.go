package commands

import (
	"fmt"
	"os"

	"gallwatch/internal/browser"
	"gallwatch/internal/components/chrono"
	"gallwatch/internal/gallery"
	"gallwatch/internal/identity"
	"gallwatch/internal/watcher"
	"gallwatch/lib/osutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Harvests the thread once and prints the commenters that would be handled, without signing in or saving anything.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		opts := loadOptions()
		s := loadSettings(opts)

		sleeper := chrono.NewStandardSleeper()
		session, err := browser.Launch(ctx, opts.Browser, sleeper, tel)
		if err != nil {
			osutil.Fatal("failed to start browser", err)
		}
		defer session.Close()

		controller := watcher.NewController(s, watcher.Dependencies{
			Session: session,
			Harvester: gallery.NewHarvester(gallery.HarvesterOptions{
				NavigationSettle: opts.NavigationSettle(),
				TransitionSettle: opts.TransitionSettle(),
				Out:              os.Stdout,
			}, tel),
			Store:   identity.NewStore(opts.StateDir, opts.DenyList, tel),
			Sleeper: sleeper,
			Out:     os.Stdout,
		}, tel)

		err = controller.Init()
		if err != nil {
			osutil.Fatal("failed to initialize", err, session)
		}
		report := controller.Preview(ctx)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("thread %s", controller.Thread())
		t.AppendHeader(table.Row{"New identity"})
		for _, id := range report.New.Sorted() {
			t.AppendRow(table.Row{id})
		}
		t.AppendFooter(table.Row{fmt.Sprintf(
			"harvested %d over %d/%d page(s)",
			report.Harvest.Identities.Len(),
			report.Harvest.PagesVisited,
			report.Harvest.PageCount,
		)})
		t.Render()

		if report.Harvest.Degraded() {
			osutil.Fatal("harvest did not complete", report.Harvest.Err, session)
		}
	},
}
