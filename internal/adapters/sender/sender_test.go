package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
)

var _ core.MailSender = (*Sender)(nil)

type fakeSMTP struct {
	authErr error
	sendErr error
	from    string
	to      []string
	data    []byte
	quit    bool
	closed  bool
	// block makes SendMail wait until Close
	block     chan struct{}
	closeOnce sync.Once
}

func (f *fakeSMTP) Auth(sasl.Client) error { return f.authErr }

func (f *fakeSMTP) SendMail(from string, to []string, r io.Reader) error {
	if f.block != nil {
		<-f.block
		return errors.New("use of closed network connection")
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.from = from
	f.to = to
	f.data, _ = io.ReadAll(r)
	return nil
}

func (f *fakeSMTP) Quit() error {
	f.quit = true
	return nil
}

func (f *fakeSMTP) Close() error {
	f.closeOnce.Do(func() {
		f.closed = true
		if f.block != nil {
			close(f.block)
		}
	})
	return nil
}

var mailCfg = config.MailConfig{
	SMTPAddress: "smtp.example.com:587",
	Subject:     "Your Weekly Email-TLDR!",
}

var creds = core.Credentials{Address: "me@example.com", Secret: "app-password"}

func newTestSender(v core.Variant, fake *fakeSMTP, dialErr error) (*Sender, *string) {
	s := NewSender(mailCfg, core.PipelineOptions{Variant: v}, zap.NewNop())
	var host string
	s.dial = func(_ context.Context, addr string, tlsConfig *tls.Config, _ time.Duration) (smtpClient, error) {
		host = tlsConfig.ServerName
		if dialErr != nil {
			return nil, dialErr
		}
		return fake, nil
	}
	s.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s, &host
}

func TestSendDigest(t *testing.T) {
	fake := &fakeSMTP{}
	s, host := newTestSender(core.VariantDigest, fake, nil)

	err := s.Send(context.Background(), creds, "Meeting at 3pm. Invoice due Friday.")
	be.Err(t, err, nil)
	be.Equal(t, *host, "smtp.example.com")
	be.Equal(t, fake.from, "me@example.com")
	be.Equal(t, fake.to, []string{"me@example.com"})
	be.True(t, fake.quit)
	be.True(t, fake.closed)

	mr, err := mail.CreateReader(bytes.NewReader(fake.data))
	be.Err(t, err, nil)
	subject, err := mr.Header.Subject()
	be.Err(t, err, nil)
	be.Equal(t, subject, "Your Weekly Email-TLDR!")
	mediaType, _, _ := mr.Header.ContentType()
	be.Equal(t, mediaType, "text/plain")

	part, err := mr.NextPart()
	be.Err(t, err, nil)
	body, _ := io.ReadAll(part.Body)
	be.Equal(t, string(body), "Meeting at 3pm. Invoice due Friday.")
}

func TestSendPerEmailHasHTMLList(t *testing.T) {
	fake := &fakeSMTP{}
	s, _ := newTestSender(core.VariantPerEmail, fake, nil)

	err := s.Send(context.Background(), creds, "Meeting moved\n\nInvoice <due>")
	be.Err(t, err, nil)

	mr, err := mail.CreateReader(bytes.NewReader(fake.data))
	be.Err(t, err, nil)
	mediaType, _, _ := mr.Header.ContentType()
	be.Equal(t, mediaType, "multipart/alternative")

	var types []string
	var html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		be.Err(t, err, nil)
		h := part.Header.(*mail.InlineHeader)
		ct, _, _ := h.ContentType()
		types = append(types, ct)
		data, _ := io.ReadAll(part.Body)
		if ct == "text/html" {
			html = string(data)
		}
	}
	be.Equal(t, types, []string{"text/plain", "text/html"})
	be.True(t, strings.Contains(html, "<li>Meeting moved</li><li>Invoice &lt;due&gt;</li>"))
}

func TestSendErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeSMTP
		dialErr error
		want    core.Kind
	}{
		{"dial", &fakeSMTP{}, errors.New("connection refused"), core.KindConnection},
		{"auth", &fakeSMTP{authErr: errors.New("535 bad credentials")}, nil, core.KindAuth},
		{"quota", &fakeSMTP{sendErr: errors.New("552 quota exceeded")}, nil, core.KindDelivery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSender(core.VariantDigest, tt.fake, tt.dialErr)
			err := s.Send(context.Background(), creds, "summary")
			be.Equal(t, core.KindOf(err), tt.want)
			if tt.dialErr == nil {
				be.True(t, tt.fake.closed)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	s := NewSender(mailCfg, core.PipelineOptions{Variant: core.VariantDigest}, zap.NewNop())
	email := s.Compose(creds, "text")
	be.Equal(t, email.From, email.To)
	be.Equal(t, email.HTML, "")
}

func TestSendCanceledClosesClient(t *testing.T) {
	fake := &fakeSMTP{block: make(chan struct{})}
	s, _ := newTestSender(core.VariantDigest, fake, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, creds, "Rent due Monday.")
	be.Equal(t, core.KindOf(err), core.KindDelivery)
	be.Err(t, err, context.DeadlineExceeded)
	be.True(t, fake.closed)
	be.True(t, !fake.quit)
}

func TestDialStartTLSSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	be.Err(t, err, nil)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// never send a greeting
		_, _ = io.Copy(io.Discard, conn)
	}()

	start := time.Now()
	_, err = dialStartTLS(context.Background(), ln.Addr().String(), &tls.Config{ServerName: "localhost"}, 50*time.Millisecond)
	be.Err(t, err, context.DeadlineExceeded)
	be.True(t, time.Since(start) < 5*time.Second)
}
