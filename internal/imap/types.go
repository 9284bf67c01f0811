package imap

import (
	"fmt"
	"strings"
	"time"
)

// Sender is one mailbox of a message's From envelope field.
type Sender struct {
	Name    string
	Address string
}

func (s Sender) String() string {
	if s.Name == "" {
		return s.Address
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Address)
}

// MessageSummary is the envelope metadata fetched for a search candidate.
type MessageSummary struct {
	UID     uint32
	Subject string
	From    []Sender
	Date    time.Time
}

func FormatSenders(senders []Sender) string {
	parts := make([]string, 0, len(senders))
	for _, s := range senders {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ", ")
}
