package core

import (
	"fmt"
	"strings"
	"time"
)

// Credentials identify a mailbox owner. They are passed per call and never stored.
type Credentials struct {
	Address string
	Secret  string
}

// Validate checks that both the address and the secret are present
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return &Error{Kind: KindInvalidRequest, Op: "credentials", Err: fmt.Errorf("email address is required")}
	}
	if c.Secret == "" {
		return &Error{Kind: KindInvalidRequest, Op: "credentials", Err: fmt.Errorf("password is required")}
	}
	return nil
}

// Variant selects how mail is read, summarized and delivered
type Variant string

const (
	// VariantDigest reads the all-mail folder over four days and sends one plain summary
	VariantDigest Variant = "digest"
	// VariantPerEmail reads the inbox over seven days, summarizes each email and sends an HTML list
	VariantPerEmail Variant = "per_email"
)

// ParseVariant parses a variant name, defaulting to the digest variant
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantDigest:
		return VariantDigest, nil
	case VariantPerEmail, "per-email":
		return VariantPerEmail, nil
	default:
		return "", fmt.Errorf("unsupported pipeline variant: %s", s)
	}
}

// DefaultDays is the trailing window the variant searches
func (v Variant) DefaultDays() int {
	if v == VariantPerEmail {
		return 7
	}
	return 4
}

// DefaultFolder is the mailbox folder the variant selects
func (v Variant) DefaultFolder() string {
	if v == VariantPerEmail {
		return "INBOX"
	}
	return "[Gmail]/All Mail"
}

// HTMLAware reports whether bodies are read as HTML and the summary is sent as an HTML list
func (v Variant) HTMLAware() bool {
	return v == VariantPerEmail
}

// PipelineOptions is the resolved pipeline configuration
type PipelineOptions struct {
	Variant Variant
	Days    int
	Folder  string
}

// GenerationOptions are the decoding parameters passed to a model
type GenerationOptions struct {
	MaxOutputTokens int
	NumBeams        int
	EarlyStopping   bool
	Temperature     float32
}

// OutboundEmail is a composed summary email
type OutboundEmail struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// RunResult records the outcome of one pipeline run
type RunResult struct {
	RunID        string
	MessageCount int
	Summary      string
	Delivered    bool
	StartedAt    time.Time
	FinishedAt   time.Time
}

// CacheEntry is a cached summary for a model and prompt pair
type CacheEntry struct {
	Key       string
	Summary   string
	Model     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// FineTuneRequest describes a fine-tuning job submission
type FineTuneRequest struct {
	BaseModel              string
	TrainingFileID         string
	ValidationFileID       string
	Epochs                 int
	BatchSize              int
	LearningRateMultiplier float64
	Suffix                 string
}

// FineTuneStatus is a snapshot of a fine-tuning job
type FineTuneStatus struct {
	JobID          string
	Status         string
	FineTunedModel string
	Message        string
}

// Terminal reports whether the job will not change state again
func (s FineTuneStatus) Terminal() bool {
	switch s.Status {
	case "succeeded", "failed", "cancelled":
		return true
	}
	return false
}

// Succeeded reports whether the job produced a model
func (s FineTuneStatus) Succeeded() bool {
	return s.Status == "succeeded"
}
