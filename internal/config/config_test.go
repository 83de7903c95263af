package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	sum := cfg.GetSummarizer()
	be.Equal(t, sum.MaxEmails, 5)
	be.Equal(t, sum.MaxInputTokens, 1024)
	be.Equal(t, sum.MaxOutputTokens, 200)
	be.Equal(t, sum.NumBeams, 4)
	be.True(t, sum.EarlyStopping)
	be.Equal(t, sum.Separator, " ")

	mail, err := cfg.GetMail()
	be.Err(t, err, nil)
	be.Equal(t, mail.IMAPAddress, "imap.gmail.com:993")
	be.Equal(t, mail.SMTPAddress, "smtp.gmail.com:587")
	be.Equal(t, mail.Subject, "Your Weekly Email-TLDR!")

	tr, err := cfg.GetTraining()
	be.Err(t, err, nil)
	be.Equal(t, tr.Epochs, 5)
	be.Equal(t, tr.BatchSize, 8)
	be.Equal(t, tr.Seed, int64(42))
	be.Equal(t, tr.ValidationSplit, 0.1)
	be.Equal(t, tr.PollInterval, 30*time.Second)

	ev := cfg.GetEvaluation()
	be.Equal(t, ev.BERTScoreSample, 100)
	be.Equal(t, ev.MaxOutputTokens, 128)
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "llm:\n  provider: gemini\npipeline:\n  variant: per_email\nserver:\n  request_timeout: 10s\n"
	be.Err(t, os.WriteFile(path, []byte(data), 0o600), nil)

	cfg, err := NewFromFile(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg.GetLLM().Provider, "gemini")
	be.Equal(t, cfg.GetPipeline().Variant, "per_email")

	srv, err := cfg.GetServer()
	be.Err(t, err, nil)
	be.Equal(t, srv.RequestTimeout, 10*time.Second)
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("breaker.interval", "soon")
	_, err := NewFromViper(v).GetBreaker()
	be.True(t, err != nil)
}
