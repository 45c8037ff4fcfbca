// Package gallog performs the automated goodwill action: it signs in and leaves
// a fixed message on the guestbook of users whose activity meets a threshold.
package gallog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"gallwatch/internal/action"
	"gallwatch/internal/browser"
	"gallwatch/internal/components/assert"
	"gallwatch/internal/components/telemetry"
	"gallwatch/internal/identity"
	"gallwatch/lib/htmlutil"
	"gallwatch/lib/restyutil"
	"gallwatch/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("gallwatch/internal/gallog")

const (
	report_client_login          = "client.login"
	report_client_activity_score = "client.activity-score"
	report_client_act            = "client.act"
)

var (
	ErrLoginFailed = errors.New("failed to sign in")
	ErrRestricted  = errors.New("guestbook only accepts allowed users")
)

const (
	DefaultLoginUrl  = "https://sign.dcinside.com/login?s_url=https://www.dcinside.com/"
	DefaultGallogUrl = "https://gallog.dcinside.com"

	selectorLoginId       = "#id"
	selectorLoginPassword = "#pw"
	selectorLoginSubmit   = ".btn_blue"

	selectorPostCount    = "div.gallog_cont:not(.comments) span.num"
	selectorCommentCount = "div.gallog_cont.comments span.num"

	selectorRestricted  = "div.nomem_comment_info"
	selectorMemo        = "textarea[name=memo]"
	selectorMemoConsent = "#comment_chk"
	selectorMemoSubmit  = "#gb_form > div:nth-of-type(2) > div:nth-of-type(2) > div:nth-of-type(2) > button"
)

type Options struct {
	LoginUrl  string
	GallogUrl string
	// LoginSettle is waited after opening the sign in page and after submitting it.
	LoginSettle time.Duration
	// NavigationSettle is waited after opening and after submitting a guestbook.
	NavigationSettle time.Duration
	// MinWriteInterval is the minimum time between two guestbook writes.
	MinWriteInterval time.Duration
	// DumpDir, if set, receives every profile lookup exchange as a file.
	DumpDir string
	// Out receives human readable progress lines, nil discards them.
	Out io.Writer
}

// Client is the action collaborator. Profile lookups go over plain HTTP,
// sign in and guestbook writes drive the shared browser session.
type Client struct {
	opts    Options
	http    *resty.Client
	limiter *rate.Limiter
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("gallog", tel)

	if opts.LoginUrl == "" {
		opts.LoginUrl = DefaultLoginUrl
	}
	if opts.GallogUrl == "" {
		opts.GallogUrl = DefaultGallogUrl
	}
	opts.GallogUrl = strings.TrimRight(opts.GallogUrl, "/")
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	parsedBaseUrl, err := url.Parse(opts.GallogUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.GallogUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(httpClient, tel)
	if opts.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, err
		}
		restyutil.DumpExchanges(httpClient, output)
	}

	limit := rate.Inf
	if opts.MinWriteInterval > 0 {
		limit = rate.Every(opts.MinWriteInterval)
	}

	return &Client{
		opts:    opts,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		tel:     tel,
	}, nil
}

// Login signs in on the session. Any failure is reported as ErrLoginFailed.
func (c *Client) Login(ctx context.Context, session browser.Session, username, password string) error {
	ctx, span := tracer.Start(ctx, "Client.Login")
	defer span.End()

	loginError := func(err error) error {
		c.tel.ReportBroken(report_client_login, err)
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	fmt.Fprintln(c.opts.Out, "signing in...")
	err := session.Navigate(ctx, c.opts.LoginUrl)
	if err != nil {
		return loginError(fmt.Errorf("open sign in page: %w", err))
	}
	err = session.Settle(ctx, c.opts.LoginSettle)
	if err != nil {
		return loginError(err)
	}

	err = session.Fill(ctx, selectorLoginId, username)
	if err != nil {
		return loginError(fmt.Errorf("fill id: %w", err))
	}
	err = session.Fill(ctx, selectorLoginPassword, password)
	if err != nil {
		return loginError(fmt.Errorf("fill password: %w", err))
	}
	err = session.Click(ctx, selectorLoginSubmit)
	if err != nil {
		return loginError(fmt.Errorf("submit: %w", err))
	}
	err = session.Settle(ctx, c.opts.LoginSettle)
	if err != nil {
		return loginError(err)
	}

	markup, err := session.Markup(ctx)
	if err != nil {
		return loginError(fmt.Errorf("read result page: %w", err))
	}
	doc, err := htmlutil.ParseDocument(markup)
	if err != nil {
		return loginError(fmt.Errorf("parse result page: %w", err))
	}
	if doc.Find(selectorLoginPassword).Length() > 0 {
		return loginError(errors.New("still on the sign in page"))
	}

	fmt.Fprintln(c.opts.Out, "signed in.")
	return nil
}

// ActivityScore returns the sum of the post and comment counters shown on the user's gallog.
func (c *Client) ActivityScore(ctx context.Context, id identity.Identity) (int, error) {
	endpoint := "/" + url.PathEscape(string(id))

	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		c.tel.ReportBroken(report_client_activity_score, fmt.Errorf("fetch: %w", err), endpoint)
		return 0, err
	}
	if res.IsError() {
		err := fmt.Errorf("fetch: unexpected status %s", res.Status())
		c.tel.ReportBroken(report_client_activity_score, err, endpoint)
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_activity_score, fmt.Errorf("parse: %w", err), endpoint)
		return 0, err
	}

	return parseActivityScore(doc)
}

func parseActivityScore(doc *goquery.Document) (int, error) {
	posts := doc.Find(selectorPostCount).First()
	comments := doc.Find(selectorCommentCount).First()
	if posts.Length() == 0 || comments.Length() == 0 {
		return 0, errors.New("activity counters not found")
	}

	postCount, err := textutil.ParseCount(posts.Text())
	if err != nil {
		return 0, fmt.Errorf("post count: %w", err)
	}
	commentCount, err := textutil.ParseCount(comments.Text())
	if err != nil {
		return 0, fmt.Errorf("comment count: %w", err)
	}
	return postCount + commentCount, nil
}

func (c *Client) guestbookUrl(id identity.Identity) string {
	return fmt.Sprintf("%s/%s/guestbook", c.opts.GallogUrl, url.PathEscape(string(id)))
}

// Act checks the eligibility of id and writes payload to its guestbook.
// It never returns an error, the failure class is carried by the outcome.
func (c *Client) Act(ctx context.Context, session browser.Session, id identity.Identity, threshold int, payload string) action.Result {
	ctx, span := tracer.Start(ctx, "Client.Act")
	defer span.End()
	span.SetAttributes(attribute.String("identity", string(id)))

	result := func(outcome action.Outcome, err error) action.Result {
		span.SetAttributes(attribute.String("outcome", outcome.String()))
		if outcome == action.FailedTransient {
			c.tel.ReportWarning(report_client_act, err, string(id))
			span.RecordError(err)
		}
		return action.Result{Identity: id, Outcome: outcome, Err: err}
	}

	fmt.Fprintf(c.opts.Out, "checking activity of '%s'...\n", id)
	score, err := c.ActivityScore(ctx, id)
	if err != nil {
		return result(action.FailedTransient, fmt.Errorf("activity score: %w", err))
	}
	if score < threshold {
		fmt.Fprintf(c.opts.Out, "'%s' is below the activity threshold (%d < %d).\n", id, score, threshold)
		return result(action.SkippedIneligible, nil)
	}

	err = c.limiter.Wait(ctx)
	if err != nil {
		return result(action.FailedTransient, err)
	}

	fmt.Fprintf(c.opts.Out, "writing to the guestbook of '%s'...\n", id)
	err = session.Navigate(ctx, c.guestbookUrl(id))
	if err != nil {
		return result(action.FailedTransient, fmt.Errorf("open guestbook: %w", err))
	}
	err = session.Settle(ctx, c.opts.NavigationSettle)
	if err != nil {
		return result(action.FailedTransient, err)
	}

	markup, err := session.Markup(ctx)
	if err != nil {
		return result(action.FailedTransient, fmt.Errorf("read guestbook: %w", err))
	}
	doc, err := htmlutil.ParseDocument(markup)
	if err != nil {
		return result(action.FailedTransient, fmt.Errorf("parse guestbook: %w", err))
	}
	if doc.Find(selectorRestricted).Length() > 0 {
		fmt.Fprintf(c.opts.Out, "the guestbook of '%s' only accepts allowed users.\n", id)
		return result(action.SkippedRestricted, ErrRestricted)
	}

	err = session.Fill(ctx, selectorMemo, payload)
	if err != nil {
		return result(action.FailedTransient, fmt.Errorf("fill memo: %w", err))
	}
	checked, err := session.Checked(ctx, selectorMemoConsent)
	if err != nil {
		return result(action.FailedTransient, fmt.Errorf("read consent: %w", err))
	}
	if !checked {
		err = session.Click(ctx, selectorMemoConsent)
		if err != nil {
			return result(action.FailedTransient, fmt.Errorf("tick consent: %w", err))
		}
	}
	err = session.Click(ctx, selectorMemoSubmit)
	if err != nil {
		return result(action.FailedTransient, fmt.Errorf("submit: %w", err))
	}
	err = session.Settle(ctx, c.opts.NavigationSettle)
	if err != nil {
		return result(action.FailedTransient, err)
	}

	fmt.Fprintf(c.opts.Out, "wrote to the guestbook of '%s'.\n", id)
	return result(action.Performed, nil)
}
