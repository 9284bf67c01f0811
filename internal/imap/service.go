package imap

import (
	"crypto/tls"
	"fmt"
	"sort"

	"inboxsweep/internal/config"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
)

// Client is the subset of *imapclient.Client the cleaner drives.
type Client interface {
	Login(username, password string) error
	Logout() error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	List(ref, name string, ch chan *imap.MailboxInfo) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Expunge(ch chan uint32) error
}

type Service struct {
	Connector func(cfg config.Config) (Client, error)
}

func NewService() *Service {
	return &Service{Connector: Connect}
}

func Connect(cfg config.Config) (Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port)
	var c *imapclient.Client
	var err error

	if cfg.IMAP.TLS {
		tlsConfig := &tls.Config{
			ServerName:         cfg.IMAP.Host,
			InsecureSkipVerify: cfg.IMAP.InsecureSkipVerify, //nolint:gosec // opt-in via config
		}
		c, err = imapclient.DialTLS(addr, tlsConfig)
	} else {
		c, err = imapclient.Dial(addr)
		if err == nil && cfg.IMAP.StartTLS {
			tlsConfig := &tls.Config{
				ServerName:         cfg.IMAP.Host,
				InsecureSkipVerify: cfg.IMAP.InsecureSkipVerify, //nolint:gosec // opt-in via config
			}
			if err := c.StartTLS(tlsConfig); err != nil {
				_ = c.Logout()
				return nil, fmt.Errorf("imap starttls: %w", err)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("imap connect %s: %w", addr, err)
	}

	if err := c.Login(cfg.Auth.Username, cfg.Auth.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	return c, nil
}

func (s *Service) connect(cfg config.Config) (Client, error) {
	connector := s.Connector
	if connector == nil {
		connector = Connect
	}
	return connector(cfg)
}

func (s *Service) withClient(cfg config.Config, fn func(Client) error) error {
	client, err := s.connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Logout()
	}()
	return fn(client)
}

// Open returns an authenticated session that stays connected until Close.
func (s *Service) Open(cfg config.Config) (*Session, error) {
	client, err := s.connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{client: client}, nil
}

func (s *Service) ListMailboxes(cfg config.Config) ([]string, error) {
	mailboxes := []string{}
	err := s.withClient(cfg, func(c Client) error {
		ch := make(chan *imap.MailboxInfo, 10)
		done := make(chan error, 1)
		go func() {
			done <- c.List("", "*", ch)
		}()
		for mbox := range ch {
			mailboxes = append(mailboxes, mbox.Name)
		}
		return <-done
	})
	return mailboxes, err
}

// Session operates on one selected folder at a time over a single
// connection.
type Session struct {
	client Client
	folder string
}

func (s *Session) Folder() string {
	return s.folder
}

// Select opens folder read-write.
func (s *Session) Select(folder string) error {
	if _, err := s.client.Select(folder, false); err != nil {
		return fmt.Errorf("select %s: %w", folder, err)
	}
	s.folder = folder
	return nil
}

// Search runs a UID SEARCH and returns the UIDs in ascending order.
func (s *Session) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.folder, err)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// FetchSummaries fetches envelope and UID for all uids in one UID FETCH.
func (s *Session) FetchSummaries(uids []uint32) ([]MessageSummary, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}
	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, ch)
	}()

	summaries := make([]MessageSummary, 0, len(uids))
	for msg := range ch {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		summaries = append(summaries, MessageSummary{
			UID:     msg.Uid,
			Subject: msg.Envelope.Subject,
			From:    convertAddresses(msg.Envelope.From),
			Date:    msg.Envelope.Date,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.folder, err)
	}
	return summaries, nil
}

// FlagDeleted sets \Deleted on uid without removing it.
func (s *Session) FlagDeleted(uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.client.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("flag %d in %s: %w", uid, s.folder, err)
	}
	return nil
}

// Expunge permanently removes every \Deleted message in the selected folder.
func (s *Session) Expunge() error {
	if err := s.client.Expunge(nil); err != nil {
		return fmt.Errorf("expunge %s: %w", s.folder, err)
	}
	return nil
}

func (s *Session) Close() error {
	return s.client.Logout()
}

func convertAddresses(addrs []*imap.Address) []Sender {
	if len(addrs) == 0 {
		return nil
	}
	senders := make([]Sender, 0, len(addrs))
	for _, addr := range addrs {
		if addr == nil {
			continue
		}
		full := addr.MailboxName
		if addr.HostName != "" {
			full = addr.MailboxName + "@" + addr.HostName
		}
		senders = append(senders, Sender{Name: addr.PersonalName, Address: full})
	}
	return senders
}
