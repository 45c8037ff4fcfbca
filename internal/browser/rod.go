package browser

import (
	"context"
	"fmt"
	"time"

	"gallwatch/internal/components/assert"
	"gallwatch/internal/components/chrono"
	"gallwatch/internal/components/telemetry"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

const (
	report_rod_launch   = "rod.launch"
	report_rod_navigate = "rod.navigate"
	report_rod_script   = "rod.run-script"
)

// RodSession implements Session on a single chrome tab driven over CDP.
type RodSession struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	sleeper  chrono.Sleeper
	tel      telemetry.API
}

// Launch connects to cfg.DebuggerURL or launches a new chrome and opens a blank tab.
func Launch(ctx context.Context, cfg Config, sleeper chrono.Sleeper, tel telemetry.API) (*RodSession, error) {
	assert.NotNil(sleeper)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("browser", tel)

	s := &RodSession{cfg: cfg, sleeper: sleeper, tel: tel}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.IsHeadless())
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if cfg.NoSandbox {
			l = l.NoSandbox(true).Set(flags.Flag("disable-dev-shm-usage"))
		}
		url, err := l.Context(ctx).Launch()
		if err != nil {
			tel.ReportBroken(report_rod_launch, err)
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		s.launcher = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL)
	err := browser.Connect()
	if err != nil {
		tel.ReportBroken(report_rod_launch, err, controlURL)
		s.cleanupLauncher()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		tel.ReportBroken(report_rod_launch, err)
		s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	return s, nil
}

func (s *RodSession) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
}

// Close closes the tab and the browser, a launched chrome is killed.
func (s *RodSession) Close() error {
	var err error
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.cleanupLauncher()
	return err
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	err := page.Navigate(url)
	if err != nil {
		s.tel.ReportWarning(report_rod_navigate, err, url)
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	err = page.WaitLoad()
	if err != nil {
		s.tel.ReportWarning(report_rod_navigate, fmt.Errorf("wait load: %w", err), url)
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (s *RodSession) Markup(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *RodSession) RunScript(ctx context.Context, command string) error {
	_, err := s.page.Context(ctx).Eval(fmt.Sprintf("() => { %s }", command))
	if err != nil {
		s.tel.ReportWarning(report_rod_script, err, command)
		return fmt.Errorf("run script %q: %w", command, err)
	}
	return nil
}

func (s *RodSession) Settle(ctx context.Context, d time.Duration) error {
	return s.sleeper.Sleep(ctx, d)
}

func (s *RodSession) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout()).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", selector, err)
	}
	return el.CancelTimeout(), nil
}

func (s *RodSession) Fill(ctx context.Context, selector, text string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	err = el.SelectAllText()
	if err != nil {
		return fmt.Errorf("clear %s: %w", selector, err)
	}
	return el.Input(text)
}

func (s *RodSession) Click(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *RodSession) Checked(ctx context.Context, selector string) (bool, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return false, err
	}
	res, err := el.Eval(`() => this.checked`)
	if err != nil {
		return false, fmt.Errorf("read checked %s: %w", selector, err)
	}
	return res.Value.Bool(), nil
}
