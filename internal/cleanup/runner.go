package cleanup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"inboxsweep/internal/config"
	"inboxsweep/internal/email"
	"inboxsweep/internal/report"
)

// MailboxSession is a connected Mailbox that must be closed.
type MailboxSession interface {
	Mailbox
	Close() error
}

// Runner drives one batch run: credential check, folder loop over a single
// inbound connection, then report delivery over a separate outbound one.
type Runner struct {
	Config  config.Config
	DryRun  bool
	Open    func(cfg config.Config) (MailboxSession, error)
	Send    func(cfg config.Config, msg []byte) error
	Journal Journal
	Log     *slog.Logger
	Out     io.Writer
	Now     func() time.Time
}

func (r *Runner) Run() (*Session, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	if err := config.ValidateCredential(r.Config); err != nil {
		r.logger().Error("aborting before any connection", "error", err)
		return nil, err
	}

	mb, err := r.Open(r.Config)
	if err != nil {
		r.record(slog.LevelError, fmt.Sprintf("Error connecting to IMAP: %v", err))
		return nil, fmt.Errorf("connect inbound: %w", err)
	}
	r.record(slog.LevelInfo, "IMAP connection established", "host", r.Config.IMAP.Host)

	session := NewSession(report.New(start))
	cleaner := &Cleaner{
		Mailbox:          mb,
		Keywords:         r.Config.Cleanup.Senders,
		Cutoff:           Cutoff(start, r.Config.Cleanup.ThresholdDays),
		DryRun:           r.DryRun,
		PerFolderExpunge: r.Config.Cleanup.ExpungePolicy == config.ExpungePerFolder,
		Journal:          r.Journal,
		Log:              r.logger(),
	}

	func() {
		defer func() {
			if err := mb.Close(); err != nil {
				r.record(slog.LevelWarn, fmt.Sprintf("Error closing IMAP connection: %v", err))
				return
			}
			r.record(slog.LevelInfo, "IMAP connection closed")
		}()
		cleaner.Run(session, r.Config.Cleanup.Folders)
	}()

	session.Report.Finish(session.Deleted, session.WouldDelete, r.DryRun)
	r.notify(session.Report, now())

	elapsed := now().Sub(start)
	r.record(slog.LevelInfo, fmt.Sprintf("Total time: %.2f seconds", elapsed.Seconds()))

	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprint(out, session.Report.String())

	return session, nil
}

// notify delivers the report. Failures are logged and never end the run.
func (r *Runner) notify(rep *report.Report, date time.Time) {
	cfg := r.Config
	if !cfg.Report.Enabled || r.DryRun || r.Send == nil {
		r.logger().Info("report email skipped", "enabled", cfg.Report.Enabled, "dry_run", r.DryRun)
		return
	}

	msg, err := email.BuildReport(email.ReportInput{
		From:    cfg.Auth.Username,
		To:      config.ReportRecipient(cfg),
		Subject: cfg.Report.Subject,
		Body:    rep.String(),
		Date:    date,
	})
	if err != nil {
		r.record(slog.LevelError, fmt.Sprintf("Error building report email: %v", err))
		return
	}

	if err := r.Send(cfg, msg); err != nil {
		r.record(slog.LevelError, fmt.Sprintf("Error sending email: %v", err))
		return
	}
	r.record(slog.LevelInfo, "Report sent by email", "to", config.ReportRecipient(cfg))
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Log
}

func (r *Runner) record(level slog.Level, line string, attrs ...any) {
	record(r.logger(), r.Journal, level, line, attrs...)
}
