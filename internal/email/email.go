package email

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// ReportInput describes the plain-text report message.
type ReportInput struct {
	From    string
	To      string
	Subject string
	Body    string
	Date    time.Time
}

// BuildReport renders a single-part text/plain message.
func BuildReport(in ReportInput) ([]byte, error) {
	if in.From == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if in.To == "" {
		return nil, fmt.Errorf("to address is required")
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	var h mail.Header
	h.SetDate(in.Date)
	h.SetSubject(in.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: in.From}})
	h.SetAddressList("To", []*mail.Address{{Address: in.To}})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, in.Body); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func ExtractRecipients(raw []byte) ([]string, error) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	header := reader.Header
	recipients := []string{}

	addFromHeader := func(field string) error {
		list, err := header.AddressList(field)
		if err != nil {
			return fmt.Errorf("read %s header: %w", field, err)
		}
		for _, addr := range list {
			recipients = append(recipients, addr.Address)
		}
		return nil
	}

	for _, field := range []string{"To", "Cc", "Bcc"} {
		if err := addFromHeader(field); err != nil {
			return nil, err
		}
	}

	return recipients, nil
}

// Sender returns the address in the From header.
func Sender(raw []byte) (string, error) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	list, err := reader.Header.AddressList("From")
	if err != nil {
		return "", fmt.Errorf("read from header: %w", err)
	}
	if len(list) == 0 {
		return "", fmt.Errorf("from header is empty")
	}
	return strings.TrimSpace(list[0].Address), nil
}
