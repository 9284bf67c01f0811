package cleanup

import "inboxsweep/internal/report"

// FolderState tracks a folder through one pass of the cleaner.
type FolderState int

const (
	FolderClosed FolderState = iota
	FolderOpen
	FolderScanned
	FolderExpunged
	FolderUntouched
)

func (s FolderState) String() string {
	switch s {
	case FolderClosed:
		return "closed"
	case FolderOpen:
		return "open"
	case FolderScanned:
		return "scanned"
	case FolderExpunged:
		return "expunged"
	case FolderUntouched:
		return "untouched"
	default:
		return "unknown"
	}
}

type FolderResult struct {
	Folder      string
	State       FolderState
	Candidates  int
	Flagged     []uint32 // UIDs flagged \Deleted, in order
	WouldDelete int
	Err         error
}

// Session carries the per-run state shared by every folder: the cumulative
// deleted counter and the report.
type Session struct {
	Deleted     int
	WouldDelete int
	Report      *report.Report
	Folders     []FolderResult
}

func NewSession(r *report.Report) *Session {
	return &Session{Report: r}
}
