package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/utils"
)

// smtpClient is the subset of the go-smtp client used to submit one message
type smtpClient interface {
	Auth(a sasl.Client) error
	SendMail(from string, to []string, r io.Reader) error
	Quit() error
	Close() error
}

type dialFunc func(ctx context.Context, addr string, tlsConfig *tls.Config, timeout time.Duration) (smtpClient, error)

// Sender delivers summaries over SMTP with STARTTLS
type Sender struct {
	address   string
	subject   string
	timeout   time.Duration
	htmlAware bool
	logger    *zap.Logger
	dial      dialFunc
	now       func() time.Time
}

// NewSender creates a new SMTP sender for the pipeline variant
func NewSender(mailCfg config.MailConfig, opts core.PipelineOptions, logger *zap.Logger) *Sender {
	return &Sender{
		address:   mailCfg.SMTPAddress,
		subject:   mailCfg.Subject,
		timeout:   mailCfg.SMTPTimeout,
		htmlAware: opts.Variant.HTMLAware(),
		logger:    logger,
		dial:      dialStartTLS,
		now:       time.Now,
	}
}

func dialStartTLS(ctx context.Context, addr string, tlsConfig *tls.Config, timeout time.Duration) (smtpClient, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// the greeting and STARTTLS exchange run under the client's own
	// command timeout, so the handshake is bounded by closing the conn
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	c, err := smtp.NewClientStartTLS(conn, tlsConfig)
	if !stop() {
		if err == nil {
			c.Close()
		}
		return nil, fmt.Errorf("smtp handshake: %w", ctx.Err())
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	if timeout > 0 {
		c.CommandTimeout = timeout
		c.SubmissionTimeout = timeout
	}
	return c, nil
}

// Compose builds the outbound email addressed from and to the credential owner
func (s *Sender) Compose(creds core.Credentials, summary string) core.OutboundEmail {
	email := core.OutboundEmail{
		From:    creds.Address,
		To:      creds.Address,
		Subject: s.subject,
		Text:    summary,
	}
	if s.htmlAware {
		email.HTML = utils.HTMLList(summary)
	}
	return email
}

// Send composes the summary email and submits it
func (s *Sender) Send(ctx context.Context, creds core.Credentials, summary string) error {
	if err := ctx.Err(); err != nil {
		return &core.Error{Kind: core.KindDelivery, Op: "smtp send", Err: err}
	}

	email := s.Compose(creds, summary)
	data, err := ComposeMessage(email, s.now())
	if err != nil {
		return &core.Error{Kind: core.KindDelivery, Op: "compose message", Err: err}
	}

	host, _, err := net.SplitHostPort(s.address)
	if err != nil {
		return &core.Error{Kind: core.KindConnection, Op: "smtp dial", Err: fmt.Errorf("invalid address %q: %w", s.address, err)}
	}

	c, err := s.dial(ctx, s.address, &tls.Config{ServerName: host}, s.timeout)
	if err != nil {
		return &core.Error{Kind: core.KindConnection, Op: "smtp dial", Err: err}
	}
	defer c.Close()

	// closing the client unblocks a command waiting on the server
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if err := c.Auth(sasl.NewPlainClient("", creds.Address, creds.Secret)); err != nil {
		return &core.Error{Kind: core.KindAuth, Op: "smtp auth", Err: err}
	}

	if err := c.SendMail(email.From, []string{email.To}, bytes.NewReader(data)); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return &core.Error{Kind: core.KindDelivery, Op: "smtp send", Err: err}
	}

	if err := c.Quit(); err != nil {
		// The message is already accepted at this point
		s.logger.Warn("QUIT command failed", zap.Error(err))
	}

	s.logger.Info("Summary email sent",
		zap.String("to", email.To),
		zap.Int("bytes", len(data)),
		zap.Bool("html", email.HTML != ""))
	return nil
}

// ComposeMessage renders an outbound email as an RFC 5322 message.
// Emails with an HTML body become multipart/alternative.
func ComposeMessage(email core.OutboundEmail, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: email.From}})
	h.SetAddressList("To", []*mail.Address{{Address: email.To}})
	h.SetSubject(email.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	if email.HTML == "" {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("failed to create message writer: %w", err)
		}
		if _, err := io.WriteString(w, email.Text); err != nil {
			return nil, fmt.Errorf("failed to write message body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish message: %w", err)
		}
		return buf.Bytes(), nil
	}

	mw, err := mail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if err := writeInlinePart(mw, "text/plain", email.Text); err != nil {
		return nil, err
	}
	if err := writeInlinePart(mw, "text/html", email.HTML); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInlinePart(mw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := mw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}
