package commands

import (
	"os"

	"gallwatch/internal/browser"
	"gallwatch/internal/components/chrono"
	"gallwatch/internal/gallery"
	"gallwatch/internal/gallog"
	"gallwatch/internal/identity"
	"gallwatch/internal/notify"
	"gallwatch/internal/watcher"
	"gallwatch/lib/osutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--options <gallwatch.json5>]",
	Short: "Watches the configured thread, greeting every new commenter that is active enough.",
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

		client, err := gallog.NewClient(gallog.Options{
			LoginUrl:         opts.LoginUrl,
			GallogUrl:        opts.GallogUrl,
			LoginSettle:      opts.LoginSettle(),
			NavigationSettle: opts.NavigationSettle(),
			MinWriteInterval: opts.WriteInterval(),
			DumpDir:          opts.HttpDumpDir,
			Out:              os.Stdout,
		}, tel)
		if err != nil {
			osutil.Fatal("failed to create gallog client", err, session)
		}

		var notifier notify.Notifier = notify.Nop{}
		if opts.Email.Enabled() {
			notifier = notify.NewMailer(opts.Email, tel)
		}

		controller := watcher.NewController(s, watcher.Dependencies{
			Session: session,
			Harvester: gallery.NewHarvester(gallery.HarvesterOptions{
				NavigationSettle: opts.NavigationSettle(),
				TransitionSettle: opts.TransitionSettle(),
				Out:              os.Stdout,
			}, tel),
			Actor:    client,
			Store:    identity.NewStore(opts.StateDir, opts.DenyList, tel),
			Notifier: notifier,
			Sleeper:  sleeper,
			Out:      os.Stdout,
		}, tel)

		err = controller.Run(ctx)
		if err != nil {
			osutil.Fatal("failed to start watching", err, session)
		}
	},
}
