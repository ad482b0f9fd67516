package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	authed  bool
	from    string
	rcpts   []string
	data    bytes.Buffer
	rcptErr error
	quit    bool
	closed  bool
}

type bufferCloser struct{ *bytes.Buffer }

func (bufferCloser) Close() error { return nil }

func (f *fakeTransport) Auth(smtp.Auth) error { f.authed = true; return nil }
func (f *fakeTransport) Mail(from string) error { f.from = from; return nil }
func (f *fakeTransport) Rcpt(to string) error {
	if f.rcptErr != nil {
		return f.rcptErr
	}
	f.rcpts = append(f.rcpts, to)
	return nil
}
func (f *fakeTransport) Data() (io.WriteCloser, error) { return bufferCloser{&f.data}, nil }
func (f *fakeTransport) Quit() error                   { f.quit = true; return nil }
func (f *fakeTransport) Close() error                  { f.closed = true; return nil }

func newTestMailer(t *testing.T, cfg SMTPSettings, session *fakeTransport) *SMTPMailer {
	t.Helper()
	m, err := NewSMTPMailer(cfg)
	require.NoError(t, err)
	m.dial = func(ctx context.Context, _ SMTPSettings) (transport, error) {
		_, ok := ctx.Deadline()
		require.True(t, ok, "dial should run under the send timeout")
		return session, nil
	}
	m.clock = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return m
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	m, err := NewSMTPMailer(SMTPSettings{})
	require.NoError(t, err)
	require.Equal(t, defaultSMTPTimeout, m.cfg.Timeout)
	require.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}), ErrSMTPDisabled)
}

func TestSMTPMailerSend(t *testing.T) {
	session := &fakeTransport{}
	m := newTestMailer(t, SMTPSettings{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "Restaunax <no-reply@restaunax.test>",
	}, session)

	err := m.Send(context.Background(), Message{
		To:      []string{"jane@example.com", "jane@example.com"},
		Subject: "Verify your email",
		Body:    "click",
	})
	require.NoError(t, err)

	require.True(t, session.authed)
	require.Equal(t, "no-reply@restaunax.test", session.from)
	require.Equal(t, []string{"jane@example.com"}, session.rcpts)
	require.Contains(t, session.data.String(), "Subject: Verify your email\r\n")
	require.True(t, session.quit)
	require.True(t, session.closed)
}

func TestSMTPMailerSendSkipsAuthWithoutUsername(t *testing.T) {
	session := &fakeTransport{}
	m := newTestMailer(t, SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25}, session)

	err := m.Send(context.Background(), Message{From: "ops@restaunax.test", To: []string{"a@example.com"}})
	require.NoError(t, err)
	require.False(t, session.authed)
	require.Equal(t, "ops@restaunax.test", session.from)
}

func TestSMTPMailerSendReportsRelayRejection(t *testing.T) {
	session := &fakeTransport{rcptErr: errors.New("550 mailbox unavailable")}
	m := newTestMailer(t, SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "a@restaunax.test"}, session)

	err := m.Send(context.Background(), Message{To: []string{"gone@example.com"}})
	require.ErrorContains(t, err, "rcpt to gone@example.com")
	require.False(t, session.quit)
	require.True(t, session.closed)
}

func TestSMTPMailerSendRejectsBadEnvelopeBeforeDialing(t *testing.T) {
	m, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25})
	require.NoError(t, err)
	m.dial = func(context.Context, SMTPSettings) (transport, error) {
		t.Fatal("dial should not be reached")
		return nil, nil
	}

	err = m.Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.ErrorContains(t, err, "sender address is required")
}
