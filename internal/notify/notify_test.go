package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"gallwatch/internal/action"
	"gallwatch/internal/components/telemetry"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

var config = Config{
	Server:       "smtp.example.com",
	Port:         587,
	EmailAddress: "bot@example.com",
	Password:     "secret",
	To:           []string{"owner@example.com"},
}

func testReport() Report {
	return Report{
		CycleId: "cycle-1",
		Thread:  "205860",
		Results: []action.Result{
			{Identity: "u1", Outcome: action.Performed},
			{Identity: "u2", Outcome: action.SkippedIneligible},
			{Identity: "u3", Outcome: action.Performed},
			{Identity: "u4", Outcome: action.FailedTransient},
		},
	}
}

func TestConfigEnabled(t *testing.T) {
	require.True(t, config.Enabled())
	require.False(t, Config{}.Enabled())
	require.False(t, Config{Server: "smtp.example.com", EmailAddress: "bot@example.com"}.Enabled())
}

func TestMailerNotify(t *testing.T) {
	recorder := telemetry.NewRecorder()
	mailer := NewMailer(config, recorder)

	var sent []*email.Email
	var addrs []string
	mailer.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		require.NotNil(t, auth)
		sent = append(sent, mail)
		addrs = append(addrs, addr)
		return nil
	}

	err := mailer.Notify(context.Background(), testReport())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.Equal(t, []string{"smtp.example.com:587"}, addrs)
	require.Equal(t, []string{"owner@example.com"}, sent[0].To)
	require.Contains(t, sent[0].Subject, "2 guestbook(s)")
	require.Contains(t, string(sent[0].Text), "- u1\n")
	require.Contains(t, string(sent[0].Text), "- u3\n")
	require.NotContains(t, string(sent[0].Text), "u4")
}

func TestMailerSkipsEmptyCycles(t *testing.T) {
	mailer := NewMailer(config, telemetry.NewRecorder())
	mailer.send = func(*email.Email, string, smtp.Auth) error {
		t.Fatal("nothing should be sent")
		return nil
	}

	err := mailer.Notify(context.Background(), Report{
		Results: []action.Result{{Identity: "u2", Outcome: action.SkippedRestricted}},
	})
	require.NoError(t, err)
}

func TestMailerFallsBackWithoutAuth(t *testing.T) {
	mailer := NewMailer(config, telemetry.NewRecorder())

	var auths []smtp.Auth
	mailer.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		auths = append(auths, auth)
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	err := mailer.Notify(context.Background(), testReport())
	require.NoError(t, err)
	require.Len(t, auths, 2)
	require.Nil(t, auths[1])
}

func TestMailerReportsFailure(t *testing.T) {
	recorder := telemetry.NewRecorder()
	mailer := NewMailer(config, recorder)
	mailer.send = func(*email.Email, string, smtp.Auth) error {
		return errors.New("connection refused")
	}

	err := mailer.Notify(context.Background(), testReport())
	require.Error(t, err)
	require.Len(t, recorder.Find("warning", report_mailer_notify), 1)
}
