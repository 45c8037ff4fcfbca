package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeSession is an in-memory Session driven by fixed markup, used by tests of
// everything that drives a browser.
type FakeSession struct {
	mu sync.Mutex

	// Pages maps a url to the markup rendered after navigating to it.
	Pages map[string]string
	// Scripts maps a script command to the markup rendered after running it.
	Scripts map[string]string
	// FailNavigate lists urls that fail to load.
	FailNavigate map[string]error
	// FailSelectors lists selectors that cannot be found by Fill/Click/Checked.
	FailSelectors map[string]bool
	// CheckedState is the initial state of checkboxes read by Checked.
	CheckedState map[string]bool
	// OnClick is called when a selector is clicked, it may replace the current
	// markup through the passed setter.
	OnClick func(selector string, render func(markup string)) error

	current string
	calls   []string
	filled  map[string]string
}

func NewFakeSession() *FakeSession {
	return &FakeSession{
		Pages:         map[string]string{},
		Scripts:       map[string]string{},
		FailNavigate:  map[string]error{},
		FailSelectors: map[string]bool{},
		CheckedState:  map[string]bool{},
		filled:        map[string]string{},
	}
}

func (f *FakeSession) record(call string) {
	f.calls = append(f.calls, call)
}

// Calls returns every call made in order, formatted as "<method> <args>".
func (f *FakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Filled returns the last value written to an input.
func (f *FakeSession) Filled(selector string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.filled[selector]
	return v, ok
}

func (f *FakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate " + url)

	if err, ok := f.FailNavigate[url]; ok {
		return err
	}
	markup, ok := f.Pages[url]
	if !ok {
		return fmt.Errorf("fake: no page for %s", url)
	}
	f.current = markup
	return ctx.Err()
}

func (f *FakeSession) Markup(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, ctx.Err()
}

func (f *FakeSession) RunScript(ctx context.Context, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("script " + command)

	markup, ok := f.Scripts[command]
	if !ok {
		return fmt.Errorf("fake: script %q failed", command)
	}
	f.current = markup
	return ctx.Err()
}

func (f *FakeSession) Settle(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("settle " + d.String())
	return ctx.Err()
}

func (f *FakeSession) Fill(ctx context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fill " + selector)

	if f.FailSelectors[selector] {
		return fmt.Errorf("fake: element %s not found", selector)
	}
	f.filled[selector] = text
	return ctx.Err()
}

func (f *FakeSession) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	f.record("click " + selector)

	if f.FailSelectors[selector] {
		f.mu.Unlock()
		return fmt.Errorf("fake: element %s not found", selector)
	}
	if _, ok := f.CheckedState[selector]; ok {
		f.CheckedState[selector] = !f.CheckedState[selector]
	}
	hook := f.OnClick
	f.mu.Unlock()

	if hook != nil {
		return hook(selector, func(markup string) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.current = markup
		})
	}
	return ctx.Err()
}

func (f *FakeSession) Checked(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("checked " + selector)

	if f.FailSelectors[selector] {
		return false, fmt.Errorf("fake: element %s not found", selector)
	}
	return f.CheckedState[selector], ctx.Err()
}
