package cleanup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"

	"inboxsweep/internal/imap"
)

type fakeMessage struct {
	uid     uint32
	seen    bool
	date    time.Time
	subject string
	from    []imap.Sender
}

type fakeFolder struct {
	messages  []fakeMessage
	flagged   map[uint32]bool
	flagOrder []uint32
	expunged  int
	searchErr error
	flagErr   error
}

// fakeMailbox evaluates search criteria the way a server would, matching
// FROM terms against the full address text.
type fakeMailbox struct {
	folders      map[string]*fakeFolder
	current      *fakeFolder
	selected     []string
	fetchCalls   int
	duplicateUID bool
	closed       bool
}

func newFakeMailbox(folders map[string][]fakeMessage) *fakeMailbox {
	mb := &fakeMailbox{folders: map[string]*fakeFolder{}}
	for name, msgs := range folders {
		mb.folders[name] = &fakeFolder{messages: msgs, flagged: map[uint32]bool{}}
	}
	return mb
}

func (m *fakeMailbox) Select(folder string) error {
	f, ok := m.folders[folder]
	if !ok {
		return fmt.Errorf("no such mailbox %q", folder)
	}
	m.current = f
	m.selected = append(m.selected, folder)
	return nil
}

func (m *fakeMailbox) Search(criteria *goimap.SearchCriteria) ([]uint32, error) {
	if m.current.searchErr != nil {
		return nil, m.current.searchErr
	}
	var uids []uint32
	for _, msg := range m.current.messages {
		if matchCriteria(msg, criteria) {
			uids = append(uids, msg.uid)
		}
	}
	return uids, nil
}

func (m *fakeMailbox) FetchSummaries(uids []uint32) ([]imap.MessageSummary, error) {
	m.fetchCalls++
	want := map[uint32]bool{}
	for _, uid := range uids {
		want[uid] = true
	}
	var out []imap.MessageSummary
	for _, msg := range m.current.messages {
		if !want[msg.uid] {
			continue
		}
		summary := imap.MessageSummary{UID: msg.uid, Subject: msg.subject, From: msg.from, Date: msg.date}
		out = append(out, summary)
		if m.duplicateUID {
			out = append(out, summary)
		}
	}
	return out, nil
}

func (m *fakeMailbox) FlagDeleted(uid uint32) error {
	if m.current.flagErr != nil {
		return m.current.flagErr
	}
	m.current.flagged[uid] = true
	m.current.flagOrder = append(m.current.flagOrder, uid)
	return nil
}

func (m *fakeMailbox) Expunge() error {
	m.current.expunged++
	kept := m.current.messages[:0]
	for _, msg := range m.current.messages {
		if !m.current.flagged[msg.uid] {
			kept = append(kept, msg)
		}
	}
	m.current.messages = kept
	return nil
}

func (m *fakeMailbox) Close() error {
	m.closed = true
	return nil
}

func matchCriteria(msg fakeMessage, c *goimap.SearchCriteria) bool {
	for _, flag := range c.WithoutFlags {
		if flag == goimap.SeenFlag && msg.seen {
			return false
		}
	}
	if !c.Before.IsZero() && !msg.date.Before(c.Before) {
		return false
	}
	from := strings.ToLower(imap.FormatSenders(msg.from))
	for key, values := range c.Header {
		if key != "From" {
			return false
		}
		for _, v := range values {
			if !strings.Contains(from, strings.ToLower(v)) {
				return false
			}
		}
	}
	for _, pair := range c.Or {
		if !matchCriteria(msg, pair[0]) && !matchCriteria(msg, pair[1]) {
			return false
		}
	}
	return true
}

type memJournal struct {
	lines []string
	err   error
}

func (j *memJournal) Write(message string) error {
	if j.err != nil {
		return j.err
	}
	j.lines = append(j.lines, message)
	return nil
}

func (j *memJournal) contains(substr string) bool {
	for _, line := range j.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

var errBoom = errors.New("boom")
