package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// envelope holds the parsed SMTP addresses for one delivery.
type envelope struct {
	from *mail.Address
	to   []*mail.Address
}

func (e envelope) recipients() []string {
	out := make([]string, len(e.to))
	for i, addr := range e.to {
		out[i] = addr.Address
	}
	return out
}

// newEnvelope parses sender and recipients, dropping blank and repeated recipients.
func newEnvelope(from string, to []string) (envelope, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return envelope{}, errors.New("smtp: sender address is required")
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return envelope{}, fmt.Errorf("smtp: invalid from address: %w", err)
	}

	env := envelope{from: sender}
	seen := make(map[string]struct{}, len(to))
	for _, raw := range to {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return envelope{}, fmt.Errorf("smtp: invalid recipient address %q: %w", raw, err)
		}
		key := strings.ToLower(addr.Address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		env.to = append(env.to, addr)
	}
	if len(env.to) == 0 {
		return envelope{}, errors.New("smtp: at least one recipient is required")
	}
	return env, nil
}

// compose renders msg as an RFC 5322 message with CRLF line endings.
func compose(env envelope, msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	to := make([]string, len(env.to))
	for i, addr := range env.to {
		to[i] = addr.String()
	}

	header := [][2]string{
		{"From", env.from.String()},
		{"To", strings.Join(to, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", singleLine(msg.Subject))},
		{"Date", now.UTC().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", ulid.Make().String(), domainOf(env.from.Address))},
		{"MIME-Version", "1.0"},
	}
	for _, kv := range header {
		fmt.Fprintf(&buf, "%s: %s\r\n", kv[0], kv[1])
	}

	if msg.HTML == "" {
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		if err := writeQuotedPrintable(&buf, msg.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	parts := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", parts.Boundary())
	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", msg.Body},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		w, err := parts.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("smtp: create part: %w", err)
		}
		if err := writeQuotedPrintable(w, part.body); err != nil {
			return nil, err
		}
	}
	if err := parts.Close(); err != nil {
		return nil, fmt.Errorf("smtp: close multipart: %w", err)
	}
	return buf.Bytes(), nil
}

func writeQuotedPrintable(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	body = strings.ReplaceAll(body, "\r\n", "\n")
	if _, err := io.WriteString(qp, strings.ReplaceAll(body, "\n", "\r\n")); err != nil {
		return fmt.Errorf("smtp: encode body: %w", err)
	}
	return qp.Close()
}

// singleLine keeps header values on one line so user input cannot inject headers.
func singleLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func domainOf(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return "localhost"
	}
	return address[at+1:]
}
