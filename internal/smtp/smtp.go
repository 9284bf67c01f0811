package smtp

import (
	"bytes"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"inboxsweep/internal/config"
	"inboxsweep/internal/email"
)

// Send delivers msg. With no recipients they are taken from the message's
// To, Cc and Bcc headers; an empty from uses the From header.
func Send(cfg config.Config, from string, recipients []string, msg []byte) error {
	if len(recipients) == 0 {
		extracted, err := email.ExtractRecipients(msg)
		if err != nil {
			return fmt.Errorf("extract recipients: %w", err)
		}
		recipients = extracted
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients provided")
	}
	if from == "" {
		sender, err := email.Sender(msg)
		if err != nil {
			return err
		}
		from = sender
	}

	c, err := dial(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if cfg.Auth.Password != "" {
		auth := sasl.NewPlainClient("", cfg.Auth.Username, cfg.Auth.Password)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.SendMail(from, recipients, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return c.Quit()
}

// SendReport is Send with sender and recipients read from msg.
func SendReport(cfg config.Config, msg []byte) error {
	return Send(cfg, "", nil, msg)
}

func dial(cfg config.Config) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	tlsConfig := &tls.Config{
		ServerName:         cfg.SMTP.Host,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify, //nolint:gosec // opt-in via config
	}

	var (
		c   *smtp.Client
		err error
	)
	switch {
	case cfg.SMTP.TLS:
		c, err = smtp.DialTLS(addr, tlsConfig)
	case cfg.SMTP.StartTLS:
		c, err = smtp.DialStartTLS(addr, tlsConfig)
	default:
		c, err = smtp.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp connect %s: %w", addr, err)
	}
	return c, nil
}
