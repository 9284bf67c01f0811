// Package journal appends timestamped lines to the durable cleanup log.
package journal

import (
	"fmt"
	"os"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Journal opens, appends to and closes its file on every Write; there is no
// long-lived handle, so each line succeeds or fails on its own.
type Journal struct {
	Path string
	Now  func() time.Time
}

func New(path string) *Journal {
	return &Journal{Path: path, Now: time.Now}
}

// Write appends "[YYYY-MM-DD HH:MM:SS] message". Callers treat failures as
// best-effort.
func (j *Journal) Write(message string) (err error) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	f, err := os.OpenFile(j.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // log path comes from config
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	if _, err := fmt.Fprintf(f, "[%s] %s\n", now().Format(timeLayout), message); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func (j *Journal) Writef(format string, args ...any) error {
	return j.Write(fmt.Sprintf(format, args...))
}
