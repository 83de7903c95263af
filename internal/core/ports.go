package core

import (
	"context"
)

// Model is a text-to-text generation backend
type Model interface {
	// Generate produces text for the prompt under the given decoding options
	Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error)

	// Name identifies the model, used in logs and cache keys
	Name() string
}

// Embedder turns texts into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// FineTuner runs hosted fine-tuning jobs
type FineTuner interface {
	// UploadTrainingFile uploads a JSONL dataset and returns its file id
	UploadTrainingFile(ctx context.Context, name string, data []byte) (string, error)

	// StartFineTune submits a job and returns its id
	StartFineTune(ctx context.Context, req FineTuneRequest) (string, error)

	// FineTuneStatus reports the current state of a job
	FineTuneStatus(ctx context.Context, jobID string) (FineTuneStatus, error)
}

// Mailbox is an authenticated, selected mailbox session
type Mailbox interface {
	// Since lists message ids received within the trailing window of days
	Since(ctx context.Context, days int) ([]uint32, error)

	// FetchBodies returns one body per id, in the same order
	FetchBodies(ctx context.Context, ids []uint32) ([]string, error)

	// Close logs out and releases the connection
	Close() error
}

// MailboxDialer opens mailbox sessions
type MailboxDialer interface {
	Dial(ctx context.Context, creds Credentials) (Mailbox, error)
}

// MailSender delivers the summary email back to the credential owner
type MailSender interface {
	Send(ctx context.Context, creds Credentials, summary string) error
}

// Summarizer turns email bodies into a summary
type Summarizer interface {
	Summarize(ctx context.Context, bodies []string) (string, error)
}

// SummaryCache stores generated summaries
type SummaryCache interface {
	// Get retrieves a cached entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
