package settings

import (
	"os"
	"path/filepath"
	"time"

	"gallwatch/internal/browser"
	"gallwatch/internal/gallog"
	"gallwatch/internal/notify"
	"gallwatch/lib/configutil"

	"dario.cat/mergo"
)

// Options are the runtime options read from gallwatch.json5, everything in it
// is optional.
type Options struct {
	// StateDir holds the settings file, the denylist and the seen-logs.
	StateDir     string         `json:"state_dir"`
	SettingsFile string         `json:"settings_file"`
	DenyList     string         `json:"denylist"`
	Browser      browser.Config `json:"browser"`

	NavigationSettleMs int `json:"navigation_settle_ms"`
	TransitionSettleMs int `json:"transition_settle_ms"`
	LoginSettleMs      int `json:"login_settle_ms"`
	// WriteIntervalMs is the minimum time between two guestbook writes.
	WriteIntervalMs int `json:"write_interval_ms"`

	LoginUrl  string `json:"login_url"`
	GallogUrl string `json:"gallog_url"`
	// HttpDumpDir, if set, receives every gallog http exchange for debugging.
	HttpDumpDir string `json:"http_dump_dir"`

	Email notify.Config `json:"email"`
}

func DefaultOptions() Options {
	return Options{
		StateDir:           ".",
		SettingsFile:       "settings.txt",
		DenyList:           "blacklist.txt",
		NavigationSettleMs: 3000,
		TransitionSettleMs: 3000,
		LoginSettleMs:      5000,
		WriteIntervalMs:    3000,
		LoginUrl:           gallog.DefaultLoginUrl,
		GallogUrl:          gallog.DefaultGallogUrl,
	}
}

// LoadOptions reads the options file at name (and its .local override), a
// missing file yields the defaults.
func LoadOptions(name string) (Options, error) {
	opts, err := configutil.ReadConfig[Options](name)
	if err != nil && !os.IsNotExist(err) {
		return Options{}, err
	}
	err = mergo.Merge(&opts, DefaultOptions())
	if err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) SettingsPath() string {
	return filepath.Join(o.StateDir, o.SettingsFile)
}

func (o Options) NavigationSettle() time.Duration {
	return time.Duration(o.NavigationSettleMs) * time.Millisecond
}

func (o Options) TransitionSettle() time.Duration {
	return time.Duration(o.TransitionSettleMs) * time.Millisecond
}

func (o Options) LoginSettle() time.Duration {
	return time.Duration(o.LoginSettleMs) * time.Millisecond
}

func (o Options) WriteInterval() time.Duration {
	return time.Duration(o.WriteIntervalMs) * time.Millisecond
}
