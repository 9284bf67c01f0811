package imap

import (
	"time"

	"github.com/emersion/go-imap"
)

// CleanupCriteria builds UNSEEN BEFORE <cutoff> followed by a disjunction of
// FROM <keyword> terms. An empty keyword list leaves the sender term out.
func CleanupCriteria(cutoff time.Time, keywords []string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Before = cutoff

	sender := senderDisjunction(keywords)
	if sender == nil {
		return criteria
	}
	for key, values := range sender.Header {
		for _, value := range values {
			criteria.Header.Add(key, value)
		}
	}
	criteria.Or = append(criteria.Or, sender.Or...)
	return criteria
}

// senderDisjunction folds keywords into OR(OR(k1, k2), k3)...
func senderDisjunction(keywords []string) *imap.SearchCriteria {
	var expr *imap.SearchCriteria
	for _, keyword := range keywords {
		leaf := fromContains(keyword)
		if expr == nil {
			expr = leaf
			continue
		}
		expr = &imap.SearchCriteria{Or: [][2]*imap.SearchCriteria{{expr, leaf}}}
	}
	return expr
}

func fromContains(keyword string) *imap.SearchCriteria {
	c := imap.NewSearchCriteria()
	c.Header.Add("From", keyword)
	return c
}
