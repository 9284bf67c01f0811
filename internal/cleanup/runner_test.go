package cleanup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inboxsweep/internal/config"
	"inboxsweep/internal/journal"
)

type sendRecorder struct {
	messages [][]byte
	err      error
}

func (s *sendRecorder) send(cfg config.Config, msg []byte) error {
	s.messages = append(s.messages, msg)
	return s.err
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Auth.Username = "me@example.com"
	cfg.Auth.Password = "app-secret"
	cfg.Cleanup.Senders = []string{"netflix"}
	cfg.Cleanup.Folders = []string{"INBOX", "[Gmail]/Spam"}
	return cfg
}

func newRunner(cfg config.Config, mb *fakeMailbox, sender *sendRecorder, j Journal) (*Runner, *bytes.Buffer, *int) {
	out := &bytes.Buffer{}
	opened := 0
	r := &Runner{
		Config: cfg,
		Open: func(config.Config) (MailboxSession, error) {
			opened++
			if mb == nil {
				return nil, errors.New("dial tcp: connection refused")
			}
			return mb, nil
		},
		Send:    sender.send,
		Journal: j,
		Out:     out,
		Now:     func() time.Time { return runNow },
	}
	return r, out, &opened
}

func TestRunnerFullRun(t *testing.T) {
	mb := newFakeMailbox(map[string][]fakeMessage{
		"INBOX":        {netflix(1, old, false), netflix(2, old, false)},
		"[Gmail]/Spam": {},
	})
	sender := &sendRecorder{}
	j := &memJournal{}
	r, out, _ := newRunner(testConfig(), mb, sender, j)

	session, err := r.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if session.Deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", session.Deleted)
	}
	if !mb.closed {
		t.Fatalf("expected inbound connection closed")
	}
	if len(sender.messages) != 1 {
		t.Fatalf("expected one report email, got %d", len(sender.messages))
	}
	if !strings.Contains(string(sender.messages[0]), "Total of 2 emails deleted.") {
		t.Fatalf("report email missing summary:\n%s", sender.messages[0])
	}
	if !strings.Contains(out.String(), "EMAIL CLEANUP REPORT - 2026-10-14 09:00:00") {
		t.Fatalf("expected report on stdout, got %q", out.String())
	}
	for _, want := range []string{"IMAP connection established", "IMAP connection closed", "Report sent by email", "Total time: 0.00 seconds"} {
		if !j.contains(want) {
			t.Fatalf("journal missing %q: %v", want, j.lines)
		}
	}
}

func TestRunnerMissingCredential(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Password = ""
	logPath := filepath.Join(t.TempDir(), "email_cleanup_log.txt")
	sender := &sendRecorder{}
	r, out, opened := newRunner(cfg, newFakeMailbox(nil), sender, journal.New(logPath))

	_, err := r.Run()
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if *opened != 0 {
		t.Fatalf("expected no connection attempt, got %d", *opened)
	}
	if len(sender.messages) != 0 || out.Len() != 0 {
		t.Fatalf("expected nothing sent or printed")
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatalf("expected log file unwritten, stat err=%v", err)
	}
}

func TestRunnerInboundFailureAbortsRun(t *testing.T) {
	sender := &sendRecorder{}
	j := &memJournal{}
	r, out, opened := newRunner(testConfig(), nil, sender, j)

	if _, err := r.Run(); err == nil {
		t.Fatalf("expected inbound error")
	}
	if *opened != 1 {
		t.Fatalf("expected one connection attempt, got %d", *opened)
	}
	if len(sender.messages) != 0 || out.Len() != 0 {
		t.Fatalf("expected no report after inbound failure")
	}
	if !j.contains("Error connecting to IMAP") {
		t.Fatalf("expected journal entry, got %v", j.lines)
	}
}

func TestRunnerSendFailureIsBestEffort(t *testing.T) {
	mb := newFakeMailbox(map[string][]fakeMessage{"INBOX": {}, "[Gmail]/Spam": {}})
	sender := &sendRecorder{err: errors.New("smtp auth: 535")}
	j := &memJournal{}
	r, out, _ := newRunner(testConfig(), mb, sender, j)

	if _, err := r.Run(); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}
	if !j.contains("Error sending email") {
		t.Fatalf("expected send failure in journal, got %v", j.lines)
	}
	if !strings.Contains(out.String(), "No emails deleted in this run.") {
		t.Fatalf("expected report printed, got %q", out.String())
	}
}

func TestRunnerReportDisabledAndDryRun(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Runner)
	}{
		{name: "disabled", mutate: func(r *Runner) { r.Config.Report.Enabled = false }},
		{name: "dry run", mutate: func(r *Runner) { r.DryRun = true }},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			mb := newFakeMailbox(map[string][]fakeMessage{"INBOX": {netflix(1, old, false)}, "[Gmail]/Spam": {}})
			sender := &sendRecorder{}
			r, _, _ := newRunner(testConfig(), mb, sender, &memJournal{})
			tc.mutate(r)

			if _, err := r.Run(); err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(sender.messages) != 0 {
				t.Fatalf("expected no report email, got %d", len(sender.messages))
			}
		})
	}
}
