package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mmynk/meetcost/internal/models"
)

var (
	_ Source       = (*IMAPSource)(nil)
	_ Acknowledger = (*IMAPSource)(nil)
)

// IMAPConfig holds mailbox connection settings.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	// FetchLimit caps the number of messages per poll.
	FetchLimit int
	Timeout    time.Duration
	Retry      RetryPolicy
}

// IMAPSource polls an IMAP mailbox over implicit TLS.
// Messages are fetched without setting \Seen; callers mark them with
// MarkSeen once handled. Messages that cannot be parsed are marked seen by
// Poll itself.
type IMAPSource struct {
	cfg IMAPConfig
}

// NewIMAPSource creates an IMAPSource.
func NewIMAPSource(cfg IMAPConfig) *IMAPSource {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 10
	}
	return &IMAPSource{cfg: cfg}
}

// Poll fetches up to FetchLimit unseen messages, newest first.
func (s *IMAPSource) Poll(ctx context.Context) ([]models.RawEmail, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(s.cfg.Mailbox, false); err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", s.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	// Higher sequence numbers arrived later.
	sort.Slice(seqNums, func(i, j int) bool { return seqNums[i] > seqNums[j] })
	if len(seqNums) > s.cfg.FetchLimit {
		seqNums = seqNums[:s.cfg.FetchLimit]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	type fetched struct {
		seq uint32
		raw models.RawEmail
	}
	var batch []fetched
	var skipped []uint32
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			slog.Warn("Server returned no body", "seq", msg.SeqNum)
			continue
		}
		raw, err := ParseMessage(body)
		if err != nil {
			slog.Warn("Skipping unparseable message", "seq", msg.SeqNum, "error", err)
			skipped = append(skipped, msg.Uid)
			continue
		}
		raw.UID = msg.Uid
		batch = append(batch, fetched{seq: msg.SeqNum, raw: raw})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if err := markSeen(c, skipped); err != nil {
		slog.Warn("Failed to mark unparseable messages seen", "count", len(skipped), "error", err)
	}

	sort.Slice(batch, func(i, j int) bool { return batch[i].seq > batch[j].seq })
	emails := make([]models.RawEmail, 0, len(batch))
	for _, f := range batch {
		emails = append(emails, f.raw)
	}

	slog.Info("Polled mailbox", "mailbox", s.cfg.Mailbox, "unseen", len(seqNums), "parsed", len(emails))
	return emails, nil
}

// MarkSeen sets \Seen on the messages with the given UIDs.
func (s *IMAPSource) MarkSeen(ctx context.Context, uids ...uint32) error {
	if len(uids) == 0 {
		return nil
	}

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Logout()

	if _, err := c.Select(s.cfg.Mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox %s: %w", s.cfg.Mailbox, err)
	}
	return markSeen(c, uids)
}

func markSeen(c *client.Client, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	set := new(imap.SeqSet)
	set.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(set, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark messages seen: %w", err)
	}
	return nil
}

func (s *IMAPSource) connect(ctx context.Context) (*client.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var c *client.Client
	op := func() error {
		dialed, err := client.DialTLS(addr, nil)
		if err != nil {
			slog.Warn("IMAP dial failed, retrying", "addr", addr, "error", err)
			return err
		}
		if s.cfg.Timeout > 0 {
			dialed.Timeout = s.cfg.Timeout
		}
		if err := dialed.Login(s.cfg.Username, s.cfg.Password); err != nil {
			dialed.Logout()
			// Bad credentials will not fix themselves.
			return backoff.Permanent(fmt.Errorf("failed to log in as %s: %w", s.cfg.Username, err))
		}
		c = dialed
		return nil
	}

	if err := s.cfg.Retry.retry(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return c, nil
}
