// Package cleanup deletes unread, aged mail from known senders.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goimap "github.com/emersion/go-imap"

	"inboxsweep/internal/imap"
)

// Mailbox is the inbound capability the cleaner consumes. *imap.Session
// implements it.
type Mailbox interface {
	Select(folder string) error
	Search(criteria *goimap.SearchCriteria) ([]uint32, error)
	FetchSummaries(uids []uint32) ([]imap.MessageSummary, error)
	FlagDeleted(uid uint32) error
	Expunge() error
}

// Journal receives one line per event. Write failures never stop a run.
type Journal interface {
	Write(message string) error
}

type Cleaner struct {
	Mailbox  Mailbox
	Keywords []string
	Cutoff   time.Time
	DryRun   bool
	// PerFolderExpunge expunges a folder only when that folder flagged
	// something. When false, any deletion so far in the run triggers it.
	PerFolderExpunge bool
	Journal          Journal
	Log              *slog.Logger
}

// Cutoff returns the instant messages must be delivered before.
func Cutoff(now time.Time, thresholdDays int) time.Time {
	return now.AddDate(0, 0, -thresholdDays)
}

// Run cleans folders in order. A failing folder is recorded and skipped.
func (c *Cleaner) Run(session *Session, folders []string) {
	for _, folder := range folders {
		result := c.CleanFolder(session, folder)
		session.Folders = append(session.Folders, result)
	}
}

func (c *Cleaner) CleanFolder(session *Session, folder string) FolderResult {
	result := FolderResult{Folder: folder, State: FolderClosed}

	if err := c.Mailbox.Select(folder); err != nil {
		c.fail(session, &result, err)
		return result
	}
	result.State = FolderOpen
	c.record(slog.LevelInfo, fmt.Sprintf("Processing folder: %s", folder), "folder", folder)

	uids, err := c.Mailbox.Search(imap.CleanupCriteria(c.Cutoff, c.Keywords))
	if err != nil {
		c.fail(session, &result, err)
		return result
	}
	result.Candidates = len(uids)

	summaries, err := c.Mailbox.FetchSummaries(uids)
	if err != nil {
		c.fail(session, &result, err)
		return result
	}
	result.State = FolderScanned

	seen := make(map[uint32]struct{}, len(summaries))
	for _, summary := range summaries {
		if _, dup := seen[summary.UID]; dup {
			continue
		}
		seen[summary.UID] = struct{}{}

		from := imap.FormatSenders(summary.From)
		c.record(slog.LevelDebug, fmt.Sprintf("Processing email UID %d from %s", summary.UID, from),
			"folder", folder, "uid", summary.UID)

		if !MatchesSender(summary.From, c.Keywords) {
			continue
		}

		if c.DryRun {
			result.WouldDelete++
			session.WouldDelete++
			session.Report.WouldDelete(summary.Subject, from, summary.Date)
			c.record(slog.LevelInfo, fmt.Sprintf("Would delete email: %s from %s", summary.Subject, from),
				"folder", folder, "uid", summary.UID)
			continue
		}

		if err := c.Mailbox.FlagDeleted(summary.UID); err != nil {
			c.fail(session, &result, err)
			return result
		}
		result.Flagged = append(result.Flagged, summary.UID)
		session.Deleted++
		session.Report.Deleted(summary.Subject, from, summary.Date)
		c.record(slog.LevelInfo, fmt.Sprintf("Deleted email: %s from %s", summary.Subject, from),
			"folder", folder, "uid", summary.UID)
	}

	if !c.shouldExpunge(session, result) {
		result.State = FolderUntouched
		return result
	}
	if err := c.Mailbox.Expunge(); err != nil {
		c.fail(session, &result, err)
		return result
	}
	result.State = FolderExpunged
	c.record(slog.LevelInfo, fmt.Sprintf("Expunge executed on folder %s", folder), "folder", folder)
	return result
}

func (c *Cleaner) shouldExpunge(session *Session, result FolderResult) bool {
	if c.DryRun {
		return false
	}
	if c.PerFolderExpunge {
		return len(result.Flagged) > 0
	}
	return session.Deleted > 0
}

func (c *Cleaner) fail(session *Session, result *FolderResult, err error) {
	result.Err = err
	session.Report.FolderFailed(result.Folder, err)
	c.record(slog.LevelError, fmt.Sprintf("Error processing folder %s: %v", result.Folder, err),
		"folder", result.Folder)
}

func (c *Cleaner) record(level slog.Level, line string, attrs ...any) {
	record(c.Log, c.Journal, level, line, attrs...)
}

// record echoes line to the console logger and appends it to the journal.
// A journal failure is reported on the console only.
func record(log *slog.Logger, j Journal, level slog.Level, line string, attrs ...any) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log.Log(context.Background(), level, line, attrs...)
	if j == nil {
		return
	}
	if err := j.Write(line); err != nil {
		log.Warn("journal write failed", "error", err)
	}
}
