package osutil

import (
	"io"
	"log/slog"
	"os"
)

var (
	osExit = os.Exit
	exit   = osExit
)

// Fatal logs message with err, closes the given resources in order and
// exits with status 1. Deferred calls do not run after it, so anything that
// must be released goes in closers.
func Fatal(message string, err error, closers ...io.Closer) {
	slog.Error(message, "err", err.Error())
	for _, c := range closers {
		cerr := c.Close()
		if cerr != nil {
			slog.Warn("failed to release resource before exiting", "err", cerr.Error())
		}
	}
	exit(1)
}
