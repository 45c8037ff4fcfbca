package commands

import (
	"fmt"
	"os"

	"gallwatch/internal/gallery"
	"gallwatch/internal/identity"
	"gallwatch/internal/settings"
	"gallwatch/lib/osutil"
	"gallwatch/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var seenThread string

func init() {
	seenCmd.Flags().StringVar(&seenThread, "thread", "", "The thread number, defaults to the one in the settings file.")
	rootCmd.AddCommand(seenCmd)
}

var seenCmd = &cobra.Command{
	Use:   "seen [--thread <no>]",
	Short: "Prints the identities already handled for a thread.",
	Run: func(cmd *cobra.Command, args []string) {
		opts := loadOptions()

		thread := identity.ThreadHandle(seenThread)
		if thread != "" && !textutil.IsDigits(seenThread) {
			fmt.Fprintln(os.Stderr, "--thread must be a thread number.")
			os.Exit(1)
		}
		if thread == "" {
			values, found, err := settings.ReadFile(opts.SettingsPath())
			if err != nil {
				osutil.Fatal("failed to read settings", err)
			}
			if !found {
				fmt.Fprintln(os.Stderr, "no settings file found, pass --thread.")
				os.Exit(1)
			}
			thread, err = gallery.ParseThread(values[settings.KeyUrl])
			if err != nil {
				osutil.Fatal("failed to resolve thread", err)
			}
		}

		store := identity.NewStore(opts.StateDir, opts.DenyList, tel)
		seen, err := store.ReadSeenLog(thread)
		if err != nil {
			osutil.Fatal("failed to read seen-log", err)
		}
		denied, err := store.ReadDenyList()
		if err != nil {
			osutil.Fatal("failed to read denylist", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("%s.txt", thread)
		t.AppendHeader(table.Row{"Identity", "Denied"})
		for _, id := range seen.Sorted() {
			t.AppendRow(table.Row{id, denied.Has(id)})
		}
		t.AppendFooter(table.Row{"total", seen.Len()})
		t.Render()
	},
}
