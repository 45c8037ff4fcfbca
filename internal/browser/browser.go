// Package browser is the live browser session the harvester and the guestbook
// writer drive. There is exactly one session per process, it is owned by the
// watcher and passed explicitly to whoever needs it.
package browser

import (
	"context"
	"time"
)

// Session is a single stateful page. Calls must not be interleaved, the rendered
// content is replaced in place by scripts and navigations.
type Session interface {
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string) error
	// Markup returns the currently rendered markup.
	Markup(ctx context.Context) (string, error)
	// RunScript evaluates a script statement on the current page.
	RunScript(ctx context.Context, command string) error
	// Settle waits a fixed amount of time for dynamic content to render.
	Settle(ctx context.Context, d time.Duration) error
	// Fill replaces the value of the input matched by selector.
	Fill(ctx context.Context, selector, text string) error
	// Click clicks the element matched by selector.
	Click(ctx context.Context, selector string) error
	// Checked reports the checked state of the checkbox matched by selector.
	Checked(ctx context.Context, selector string) (bool, error)
}

// Config holds browser configuration.
type Config struct {
	// Bin is the chrome binary, empty lets the launcher download or find one.
	Bin                 string `json:"bin"`
	Headless            *bool  `json:"headless"`
	DebuggerURL         string `json:"debugger_url"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
	NoSandbox           bool   `json:"no_sandbox"`
}

// IsHeadless defaults to true.
func (c Config) IsHeadless() bool {
	if c.Headless == nil {
		return true
	}
	return *c.Headless
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}
