// Package report accumulates the human-readable cleanup summary.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Report is an append-only sequence of lines.
type Report struct {
	lines []string
}

func New(started time.Time) *Report {
	r := &Report{}
	r.add(fmt.Sprintf("EMAIL CLEANUP REPORT - %s", started.Format("2006-01-02 15:04:05")))
	r.add("")
	return r
}

func (r *Report) add(line string) {
	r.lines = append(r.lines, line)
}

// Deleted records one flagged message.
func (r *Report) Deleted(subject, from string, date time.Time) {
	r.add(fmt.Sprintf("Deleted: %s from %s on %s", subject, from, date.Format("2006-01-02")))
}

// WouldDelete records a match found during a dry run.
func (r *Report) WouldDelete(subject, from string, date time.Time) {
	r.add(fmt.Sprintf("Would delete: %s from %s on %s", subject, from, date.Format("2006-01-02")))
}

func (r *Report) FolderFailed(folder string, err error) {
	r.add(fmt.Sprintf("Warning: failed to process folder %s: %v", folder, err))
}

// Finish appends the closing summary line.
func (r *Report) Finish(deleted, wouldDelete int, dryRun bool) {
	r.add("")
	switch {
	case dryRun:
		r.add(fmt.Sprintf("Dry run: %d emails would be deleted.", wouldDelete))
	case deleted > 0:
		r.add(fmt.Sprintf("Total of %d emails deleted.", deleted))
	default:
		r.add("No emails deleted in this run.")
	}
}

func (r *Report) Lines() []string {
	return append([]string(nil), r.lines...)
}

func (r *Report) String() string {
	return strings.Join(r.lines, "\n") + "\n"
}
