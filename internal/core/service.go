package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TLDRService composes the mailbox reader, summarizer and sender
type TLDRService struct {
	dialer     MailboxDialer
	summarizer Summarizer
	sender     MailSender
	logger     *zap.Logger
	days       int
}

// NewTLDRService creates a new TL;DR service
func NewTLDRService(
	dialer MailboxDialer,
	summarizer Summarizer,
	sender MailSender,
	logger *zap.Logger,
	opts PipelineOptions,
) *TLDRService {
	days := opts.Days
	if days <= 0 {
		days = opts.Variant.DefaultDays()
	}
	return &TLDRService{
		dialer:     dialer,
		summarizer: summarizer,
		sender:     sender,
		logger:     logger,
		days:       days,
	}
}

// Open connects to the mailbox immediately so bad credentials fail before any work
func (s *TLDRService) Open(ctx context.Context, creds Credentials) (*TLDR, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	mailbox, err := s.dialer.Dial(ctx, creds)
	if err != nil {
		return nil, Wrap(KindConnection, "open mailbox", err)
	}
	return &TLDR{svc: s, creds: creds, mailbox: mailbox}, nil
}

// Run opens a session, runs the pipeline once and always releases the session
func (s *TLDRService) Run(ctx context.Context, creds Credentials) (*RunResult, error) {
	session, err := s.Open(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.Warn("Failed to close mailbox session", zap.Error(cerr))
		}
	}()
	return session.SummarizeAndSend(ctx)
}

// TLDR is one open pipeline session bound to a mailbox owner
type TLDR struct {
	svc     *TLDRService
	creds   Credentials
	mailbox Mailbox

	closeOnce sync.Once
	closeErr  error
}

// SummarizeAndSend reads recent mail, summarizes it and mails the summary back.
// A delivery failure still returns the result carrying the generated summary.
func (t *TLDR) SummarizeAndSend(ctx context.Context) (*RunResult, error) {
	logger := t.svc.logger
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger = logger.With(zap.String("run_id", result.RunID))

	ids, err := t.mailbox.Since(ctx, t.svc.days)
	if err != nil {
		return nil, Wrap(KindConnection, "list messages", err)
	}
	result.MessageCount = len(ids)
	logger.Info("Found messages in window", zap.Int("count", len(ids)), zap.Int("days", t.svc.days))

	if len(ids) == 0 {
		logger.Info("No messages to summarize, skipping delivery")
		result.FinishedAt = time.Now()
		return result, nil
	}

	bodies, err := t.mailbox.FetchBodies(ctx, ids)
	if err != nil {
		return nil, Wrap(KindExtraction, "fetch bodies", err)
	}

	summary, err := t.svc.summarizer.Summarize(ctx, bodies)
	if err != nil {
		return nil, Wrap(KindGeneration, "summarize", err)
	}
	result.Summary = summary
	logger.Debug("Generated summary", zap.Int("length", len(summary)))

	if strings.TrimSpace(summary) == "" {
		logger.Info("Nothing to summarize in fetched messages, skipping delivery")
		result.FinishedAt = time.Now()
		return result, nil
	}

	if err := t.svc.sender.Send(ctx, t.creds, summary); err != nil {
		result.FinishedAt = time.Now()
		return result, Wrap(KindDelivery, "send summary", err)
	}
	result.Delivered = true
	result.FinishedAt = time.Now()

	logger.Info("Summary delivered",
		zap.String("to", t.creds.Address),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

// Close releases the mailbox session. Calling it more than once is safe.
func (t *TLDR) Close() error {
	t.closeOnce.Do(func() {
		if t.mailbox != nil {
			t.closeErr = t.mailbox.Close()
		}
	})
	return t.closeErr
}

// IsPartial reports whether err is a delivery failure that left a usable summary in res
func IsPartial(res *RunResult, err error) bool {
	var ce *Error
	return res != nil && res.Summary != "" && errors.As(err, &ce) && ce.Kind == KindDelivery
}
