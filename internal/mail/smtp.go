package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
)

// SMTPMailer sends through a single SMTP endpoint. ImplicitTLS dials TLS
// directly (port 465); otherwise the connection is upgraded with STARTTLS.
type SMTPMailer struct {
	Host        string
	Port        string
	Username    string
	Password    string
	ImplicitTLS bool
}

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg, err := buildMIME(m)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := net.JoinHostPort(s.Host, s.Port)
	tlsConfig := &tls.Config{ServerName: s.Host}

	var client *smtp.Client
	if s.ImplicitTLS {
		conn, err := (&tls.Dialer{Config: tlsConfig}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dial smtp: %w", err)
		}
		client, err = smtp.NewClient(conn, s.Host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp handshake: %w", err)
		}
	} else {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dial smtp: %w", err)
		}
		client, err = smtp.NewClient(conn, s.Host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp handshake: %w", err)
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return fmt.Errorf("starttls: %w", err)
		}
	}
	defer client.Quit()

	if s.Username != "" {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(m.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return nil
}
