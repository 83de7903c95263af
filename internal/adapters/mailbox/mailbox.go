package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
)

// imapClient is the subset of the go-imap client a session uses
type imapClient interface {
	State() imap.ConnState
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
	Terminate() error
}

// Dialer opens IMAP sessions over TLS
type Dialer struct {
	address   string
	timeout   time.Duration
	folder    string
	htmlAware bool
	logger    *zap.Logger
}

// NewDialer creates a new IMAP dialer for the pipeline variant
func NewDialer(mailCfg config.MailConfig, opts core.PipelineOptions, logger *zap.Logger) *Dialer {
	folder := opts.Folder
	if folder == "" {
		folder = opts.Variant.DefaultFolder()
	}
	return &Dialer{
		address:   mailCfg.IMAPAddress,
		timeout:   mailCfg.IMAPTimeout,
		folder:    folder,
		htmlAware: opts.Variant.HTMLAware(),
		logger:    logger,
	}
}

// Dial connects, logs in and selects the folder read-only
func (d *Dialer) Dial(ctx context.Context, creds core.Credentials) (core.Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.Error{Kind: core.KindConnection, Op: "imap dial", Err: err}
	}

	host, _, err := net.SplitHostPort(d.address)
	if err != nil {
		return nil, &core.Error{Kind: core.KindConnection, Op: "imap dial", Err: fmt.Errorf("invalid address %q: %w", d.address, err)}
	}

	conn, err := (&net.Dialer{Timeout: d.timeout}).DialContext(ctx, "tcp", d.address)
	if err != nil {
		return nil, &core.Error{Kind: core.KindConnection, Op: "imap dial", Err: err}
	}
	tlsConn := tls.Client(conn, &tls.Config{ServerName: host})

	// the greeting is read inside client.New, before c.Timeout applies
	if d.timeout > 0 {
		tlsConn.SetDeadline(time.Now().Add(d.timeout))
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, &core.Error{Kind: core.KindConnection, Op: "imap dial", Err: err}
	}
	c, err := client.New(tlsConn)
	if err != nil {
		conn.Close()
		return nil, &core.Error{Kind: core.KindConnection, Op: "imap dial", Err: err}
	}
	tlsConn.SetDeadline(time.Time{})
	c.Timeout = d.timeout

	stop := context.AfterFunc(ctx, func() { c.Terminate() })
	defer stop()

	if err := c.Login(creds.Address, creds.Secret); err != nil {
		c.Logout()
		if ctx.Err() != nil {
			return nil, &core.Error{Kind: core.KindConnection, Op: "imap login", Err: ctx.Err()}
		}
		return nil, &core.Error{Kind: core.KindAuth, Op: "imap login", Err: err}
	}

	if _, err := c.Select(d.folder, true); err != nil {
		c.Logout()
		return nil, &core.Error{Kind: core.KindConnection, Op: "imap select", Err: fmt.Errorf("folder %q: %w", d.folder, err)}
	}

	d.logger.Debug("IMAP session opened",
		zap.String("address", d.address),
		zap.String("folder", d.folder))

	return newSession(c, d.htmlAware, d.logger), nil
}

// Session is an authenticated IMAP session with a selected folder
type Session struct {
	client    imapClient
	htmlAware bool
	logger    *zap.Logger
	now       func() time.Time
}

func newSession(c imapClient, htmlAware bool, logger *zap.Logger) *Session {
	return &Session{
		client:    c,
		htmlAware: htmlAware,
		logger:    logger,
		now:       time.Now,
	}
}

// Since lists the sequence numbers of messages received in the last days.
// A failed search on a live session is logged and treated as no messages.
func (s *Session) Since(ctx context.Context, days int) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = s.now().AddDate(0, 0, -days)

	stop := s.interruptOn(ctx)
	ids, err := s.client.Search(criteria)
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return nil, &core.Error{Kind: core.KindConnection, Op: "imap search", Err: ctx.Err()}
		}
		if s.client.State() != imap.SelectedState {
			return nil, &core.Error{Kind: core.KindConnection, Op: "imap search", Err: err}
		}
		s.logger.Warn("IMAP search returned a non-OK status", zap.Error(err))
		return []uint32{}, nil
	}
	return ids, nil
}

// FetchBodies fetches the raw messages and extracts one body per id, preserving order
func (s *Session) FetchBodies(ctx context.Context, ids []uint32) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	stop := s.interruptOn(ctx)
	defer stop()

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	raws := make(map[uint32][]byte, len(ids))
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			s.logger.Warn("Server returned no body for message", zap.Uint32("id", msg.SeqNum))
			continue
		}
		raw, err := io.ReadAll(literal)
		if err != nil {
			s.logger.Warn("Failed to read message literal", zap.Uint32("id", msg.SeqNum), zap.Error(err))
			continue
		}
		raws[msg.SeqNum] = raw
	}

	if err := <-done; err != nil {
		if ctx.Err() != nil {
			return nil, &core.Error{Kind: core.KindConnection, Op: "imap fetch", Err: ctx.Err()}
		}
		return nil, &core.Error{Kind: core.KindExtraction, Op: "imap fetch", Err: err}
	}

	return BodiesFromRaw(ids, raws, s.htmlAware, s.logger), nil
}

// interruptOn drops the connection if ctx ends before the returned stop is called,
// unblocking any command in flight
func (s *Session) interruptOn(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		s.logger.Warn("Terminating IMAP connection", zap.Error(ctx.Err()))
		if err := s.client.Terminate(); err != nil {
			s.logger.Debug("IMAP terminate failed", zap.Error(err))
		}
	})
}

// Close logs out of the server
func (s *Session) Close() error {
	if s.client.State() == imap.LogoutState {
		return nil
	}
	if err := s.client.Logout(); err != nil {
		return fmt.Errorf("failed to log out of IMAP server: %w", err)
	}
	return nil
}
