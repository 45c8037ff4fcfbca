// Package notify mails a summary of the guestbooks written during a cycle.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"gallwatch/internal/action"
	"gallwatch/internal/components/assert"
	"gallwatch/internal/components/telemetry"
	"gallwatch/internal/identity"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("gallwatch/internal/notify")

const report_mailer_notify = "mailer.notify"

type Config struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled reports whether enough is configured to send anything.
func (c Config) Enabled() bool {
	return c.Server != "" && c.EmailAddress != "" && len(c.To) > 0
}

// Report is what a finished cycle hands to a Notifier.
type Report struct {
	CycleId string
	Thread  identity.ThreadHandle
	Results []action.Result
}

// Performed returns the identities whose guestbook was written.
func (r Report) Performed() []identity.Identity {
	var out []identity.Identity
	for _, res := range r.Results {
		if res.Outcome == action.Performed {
			out = append(out, res.Identity)
		}
	}
	return out
}

type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

// Nop drops every report.
type Nop struct{}

func (Nop) Notify(context.Context, Report) error {
	return nil
}

// Mailer sends a plain text mail listing the performed identities of a cycle,
// cycles where nothing was performed are not mailed.
type Mailer struct {
	config Config
	send   func(mail *email.Email, addr string, auth smtp.Auth) error
	tel    telemetry.API
}

func NewMailer(config Config, tel telemetry.API) Mailer {
	assert.NotNil(tel)
	return Mailer{
		config: config,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
		tel: telemetry.NewScopedAPI("notify", tel),
	}
}

func (m Mailer) compose(report Report) *email.Email {
	performed := report.Performed()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("gallwatch <%s>", m.config.EmailAddress)
	mail.To = m.config.To
	mail.Subject = fmt.Sprintf("[gallwatch] thread %s: %d guestbook(s) written", report.Thread, len(performed))

	body := strings.Builder{}
	fmt.Fprintf(&body, "cycle %s wrote to the guestbooks of:\n\n", report.CycleId)
	for _, id := range performed {
		fmt.Fprintf(&body, "- %s\n", id)
	}
	mail.Text = []byte(body.String())
	return mail
}

func (m Mailer) Notify(ctx context.Context, report Report) error {
	_, span := tracer.Start(ctx, "Mailer.Notify")
	defer span.End()

	if len(report.Performed()) == 0 {
		return nil
	}

	mail := m.compose(report)
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)

	err := m.send(mail, addr, smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, addr, nil)
	}
	if err != nil {
		m.tel.ReportWarning(report_mailer_notify, err, addr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
