// Package mail delivers transactional email such as verification links.
package mail

import (
	"context"
	"errors"
	"time"
)

// ErrSMTPDisabled is returned by Send when delivery is switched off in configuration.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// Message is an outbound email. HTML is optional; when set the message is sent as
// multipart/alternative with Body as the plain-text part.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSettings configure SMTPMailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// UseTLS dials with implicit TLS (port 465 style). Otherwise STARTTLS is used when offered.
	UseTLS  bool
	Timeout time.Duration
}
