package email

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
)

func TestBuildReport(t *testing.T) {
	raw, err := BuildReport(ReportInput{
		From:    "me@example.com",
		To:      "me@example.com",
		Subject: "Email cleanup report",
		Body:    "EMAIL CLEANUP REPORT\n\nNo emails deleted in this run.\n",
		Date:    time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	subject, err := reader.Header.Subject()
	if err != nil || subject != "Email cleanup report" {
		t.Fatalf("unexpected subject %q (%v)", subject, err)
	}
	if id, err := reader.Header.MessageID(); err != nil || id == "" {
		t.Fatalf("expected message id, got %q (%v)", id, err)
	}

	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("read part: %v", err)
	}
	body, err := io.ReadAll(part.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "No emails deleted in this run.") {
		t.Fatalf("unexpected body %q", body)
	}

	recipients, err := ExtractRecipients(raw)
	if err != nil {
		t.Fatalf("extract recipients: %v", err)
	}
	if len(recipients) != 1 || recipients[0] != "me@example.com" {
		t.Fatalf("unexpected recipients %v", recipients)
	}

	from, err := Sender(raw)
	if err != nil || from != "me@example.com" {
		t.Fatalf("unexpected sender %q (%v)", from, err)
	}
}

func TestBuildReportRequiresAddresses(t *testing.T) {
	if _, err := BuildReport(ReportInput{To: "me@example.com"}); err == nil {
		t.Fatalf("expected error without from")
	}
	if _, err := BuildReport(ReportInput{From: "me@example.com"}); err == nil {
		t.Fatalf("expected error without to")
	}
}
