package mail

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"strings"
)

type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer is the injected transport. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// ConsoleMailer logs messages instead of sending them. Used when no SMTP
// host is configured.
type ConsoleMailer struct {
	Log *slog.Logger
}

func (c *ConsoleMailer) Send(_ context.Context, m Message) error {
	c.Log.Info("email (console transport)",
		"to", m.To, "subject", m.Subject, "bytes", len(m.Text)+len(m.HTML))
	return nil
}

// buildMIME renders a multipart/alternative message with text and HTML
// parts.
func buildMIME(m Message) ([]byte, error) {
	var sb strings.Builder
	var body strings.Builder

	w := multipart.NewWriter(&body)

	tw, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="utf-8"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := tw.Write([]byte(m.Text)); err != nil {
		return nil, err
	}

	hw, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/html; charset="utf-8"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := hw.Write([]byte(m.HTML)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	sb.WriteString(fmt.Sprintf("From: %s\r\n", m.From))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", m.To))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", m.Subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", w.Boundary()))
	sb.WriteString("\r\n")
	sb.WriteString(body.String())

	return []byte(sb.String()), nil
}
