package sources

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/config"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxUnreadPerAccount = 25
	snippetBytes        = 2048
	snippetChars        = 200
	gmailImportantFlag  = "$Important"
)

// urgentSubjectMarkers flag a message as important when the server has no opinion
var urgentSubjectMarkers = []string{
	"urgent", "asap", "action required", "important", "deadline", "past due", "overdue", "security alert",
}

// mailMessage is the part of an IMAP message the adapters read
type mailMessage struct {
	UID      uint32
	From     string
	Subject  string
	Body     string
	Flags    []string
	Received time.Time
}

// mailbox runs one IMAP search on one account
type mailbox interface {
	search(ctx context.Context, acct config.IMAPAccount, criteria *imap.SearchCriteria, limit int) ([]mailMessage, error)
}

// Mail reads unread messages across every configured IMAP account
type Mail struct {
	accounts []config.IMAPAccount
	box      mailbox
	logger   *logger.Logger
}

// NewMail creates a mail adapter
func NewMail(accounts []config.IMAPAccount, timeout time.Duration, log *logger.Logger) *Mail {
	return &Mail{accounts: accounts, box: imapMailbox{timeout: timeout}, logger: log}
}

// UnreadAcrossAccounts returns unread mail, newest first, pre-flagged for
// importance. An account that fails is skipped; the call fails only when every
// account does.
func (m *Mail) UnreadAcrossAccounts(ctx context.Context) ([]briefing.Email, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	msgs, err := m.searchAll(ctx, criteria, maxUnreadPerAccount)
	if err != nil {
		return nil, err
	}

	emails := make([]briefing.Email, 0, len(msgs))
	for _, am := range msgs {
		emails = append(emails, toEmail(am.account, am.msg))
	}
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Received.After(emails[j].Received)
	})
	return emails, nil
}

type accountMessage struct {
	account string
	msg     mailMessage
}

func (m *Mail) searchAll(ctx context.Context, criteria *imap.SearchCriteria, limit int) ([]accountMessage, error) {
	if len(m.accounts) == 0 {
		return nil, briefing.ErrSourceNotConfigured
	}

	var (
		mu       sync.Mutex
		all      []accountMessage
		failures int
		lastErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, acct := range m.accounts {
		acct := acct
		g.Go(func() error {
			msgs, err := m.box.search(gctx, acct, criteria, limit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				m.logger.Warn("Mail account search failed", zap.String("account", accountName(acct)), zap.Error(err))
				return nil
			}
			for _, msg := range msgs {
				all = append(all, accountMessage{account: accountName(acct), msg: msg})
			}
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(m.accounts) {
		return nil, fmt.Errorf("mail: every account failed: %w", lastErr)
	}
	return all, nil
}

func accountName(acct config.IMAPAccount) string {
	if acct.Name != "" {
		return acct.Name
	}
	return acct.Username
}

func toEmail(account string, msg mailMessage) briefing.Email {
	return briefing.Email{
		ID:        fmt.Sprintf("%s:%d", account, msg.UID),
		Account:   account,
		From:      msg.From,
		Subject:   msg.Subject,
		Snippet:   snippet(msg.Body),
		Received:  msg.Received,
		Important: isImportant(msg),
	}
}

// isImportant trusts the server's flags first, then falls back to subject markers
func isImportant(msg mailMessage) bool {
	for _, f := range msg.Flags {
		if f == imap.FlaggedFlag || strings.EqualFold(f, gmailImportantFlag) {
			return true
		}
	}
	subject := strings.ToLower(msg.Subject)
	for _, marker := range urgentSubjectMarkers {
		if strings.Contains(subject, marker) {
			return true
		}
	}
	return false
}

func snippet(body string) string {
	text := plainText(body)
	if len([]rune(text)) <= snippetChars {
		return text
	}
	return string([]rune(text)[:snippetChars]) + "…"
}

// imapMailbox talks to a real IMAP server
type imapMailbox struct {
	timeout time.Duration
}

func (b imapMailbox) search(ctx context.Context, acct config.IMAPAccount, criteria *imap.SearchCriteria, limit int) ([]mailMessage, error) {
	c, err := b.dial(acct)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	// go-imap has no context support; drop the connection when ctx ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Terminate()
		case <-stop:
		}
	}()

	if err := c.Login(acct.Username, acct.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	mbox := acct.Mailbox
	if mbox == "" {
		mbox = "INBOX"
	}
	if _, err := c.Select(mbox, true); err != nil {
		return nil, fmt.Errorf("select %s: %w", mbox, err)
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.TextSpecifier},
		Peek:         true,
		Partial:      []int{0, snippetBytes},
	}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var out []mailMessage
	for msg := range messages {
		out = append(out, fromIMAP(msg, section))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return out, nil
}

func (b imapMailbox) dial(acct config.IMAPAccount) (*client.Client, error) {
	port := acct.Port
	if port == 0 {
		port = 993
	}
	addr := fmt.Sprintf("%s:%d", acct.Host, port)

	var (
		c   *client.Client
		err error
	)
	if port == 993 {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: acct.Host})
	} else {
		c, err = client.Dial(addr)
		if err == nil {
			if ok, _ := c.SupportStartTLS(); ok {
				err = c.StartTLS(&tls.Config{ServerName: acct.Host})
			}
		}
	}
	if err != nil {
		if c != nil {
			_ = c.Logout()
		}
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if b.timeout > 0 {
		c.Timeout = b.timeout
	}
	return c, nil
}

func fromIMAP(msg *imap.Message, section *imap.BodySectionName) mailMessage {
	out := mailMessage{
		UID:      msg.Uid,
		Flags:    msg.Flags,
		Received: msg.InternalDate,
	}
	if env := msg.Envelope; env != nil {
		out.Subject = env.Subject
		out.From = formatAddress(env.From)
		if out.Received.IsZero() {
			out.Received = env.Date
		}
	}
	if section != nil {
		if body := msg.GetBody(section); body != nil {
			data, _ := io.ReadAll(body)
			out.Body = string(data)
		}
	}
	return out
}

func formatAddress(addrs []*imap.Address) string {
	if len(addrs) == 0 || addrs[0] == nil {
		return ""
	}
	a := addrs[0]
	email := a.Address()
	if a.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", a.PersonalName, email)
	}
	return email
}
