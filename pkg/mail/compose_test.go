package mail

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readMessage(t *testing.T, raw []byte) *mail.Message {
	t.Helper()
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func decodeQP(t *testing.T, r io.Reader) string {
	t.Helper()
	body, err := io.ReadAll(quotedprintable.NewReader(r))
	require.NoError(t, err)
	return string(body)
}

func TestNewEnvelope(t *testing.T) {
	env, err := newEnvelope("Restaunax <no-reply@restaunax.test>", []string{
		"jane@example.com", " JANE@example.com ", "", "Bob <bob@example.com>",
	})
	require.NoError(t, err)
	require.Equal(t, "no-reply@restaunax.test", env.from.Address)
	require.Equal(t, []string{"jane@example.com", "bob@example.com"}, env.recipients())

	cases := map[string]struct {
		from string
		to   []string
		want string
	}{
		"no sender":     {"", []string{"a@example.com"}, "sender address is required"},
		"bad sender":    {"not-an-address", []string{"a@example.com"}, "invalid from address"},
		"no recipients": {"a@example.com", []string{" ", "\t"}, "at least one recipient"},
		"bad recipient": {"a@example.com", []string{"ok@example.com", "nope"}, "invalid recipient address"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newEnvelope(tc.from, tc.to)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestComposePlainText(t *testing.T) {
	env, err := newEnvelope("no-reply@restaunax.test", []string{"jane@example.com"})
	require.NoError(t, err)

	link := "http://localhost:3000/verify-email?token=" + strings.Repeat("ab", 32)
	sent := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := compose(env, Message{Subject: "Vérifiez\r\nBcc: evil@example.com", Body: "hello\n" + link}, sent)
	require.NoError(t, err)

	msg := readMessage(t, raw)
	require.Empty(t, msg.Header.Get("Bcc"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	require.Equal(t, "Vérifiez Bcc: evil@example.com", subject)

	date, err := msg.Header.Date()
	require.NoError(t, err)
	require.True(t, date.Equal(sent))
	require.True(t, strings.HasSuffix(msg.Header.Get("Message-Id"), "@restaunax.test>"))
	require.Equal(t, "text/plain; charset=UTF-8", msg.Header.Get("Content-Type"))

	require.Equal(t, "hello\r\n"+link, decodeQP(t, msg.Body))
}

func TestComposeAlternativeParts(t *testing.T) {
	env, err := newEnvelope("no-reply@restaunax.test", []string{"jane@example.com"})
	require.NoError(t, err)

	raw, err := compose(env, Message{Subject: "Welcome", Body: "plain", HTML: "<p>rich</p>"}, time.Now())
	require.NoError(t, err)

	msg := readMessage(t, raw)
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])
	var got []string
	for {
		part, err := reader.NextRawPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, part.Header.Get("Content-Type")+"|"+decodeQP(t, part))
	}
	require.Equal(t, []string{
		"text/plain; charset=UTF-8|plain",
		"text/html; charset=UTF-8|<p>rich</p>",
	}, got)
}

func TestDomainOf(t *testing.T) {
	require.Equal(t, "example.com", domainOf("a@example.com"))
	require.Equal(t, "localhost", domainOf("trailing@"))
	require.Equal(t, "localhost", domainOf("bare"))
}
