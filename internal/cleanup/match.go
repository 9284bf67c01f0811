package cleanup

import (
	"strings"

	"inboxsweep/internal/imap"
)

// MatchesSender reports whether any sender has a non-empty display name
// containing one of the lowercase keywords. The server-side FROM search
// matches on the whole address text, so this check is the one that decides.
func MatchesSender(from []imap.Sender, keywords []string) bool {
	for _, sender := range from {
		if sender.Name == "" {
			continue
		}
		name := strings.ToLower(sender.Name)
		for _, keyword := range keywords {
			if keyword != "" && strings.Contains(name, keyword) {
				return true
			}
		}
	}
	return false
}
