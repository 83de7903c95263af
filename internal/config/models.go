package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the model provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ModelName      string
	EmbeddingModel string
	Temperature    float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	Temperature    float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	Temperature float32
}

// OllamaConfig represents the configuration for a local Ollama server
type OllamaConfig struct {
	BaseURL   string
	ModelName string
}

// SummarizerConfig holds checkpoint location and decoding parameters
type SummarizerConfig struct {
	Checkpoint      string
	MaxEmails       int
	MaxInputTokens  int
	MaxOutputTokens int
	NumBeams        int
	EarlyStopping   bool
	Separator       string
}

// PipelineConfig selects the pipeline variant and its overrides
type PipelineConfig struct {
	Variant string
	Days    int
	Folder  string
}

// MailConfig holds IMAP and SMTP endpoints
type MailConfig struct {
	IMAPAddress string
	IMAPTimeout time.Duration
	SMTPAddress string
	SMTPTimeout time.Duration
	Subject     string
}

// ServerConfig holds HTTP endpoint settings
type ServerConfig struct {
	ListenAddress  string
	AllowedDomains []string
	RequestTimeout time.Duration
}

// BreakerConfig configures the circuit breaker around model calls
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// CredentialsConfig configures where the one-shot CLI reads mailbox credentials
type CredentialsConfig struct {
	Source         string
	EnvFile        string
	KeyringService string
	KeyringDir     string
}

// TrainingConfig holds fine-tuning parameters
type TrainingConfig struct {
	DataPath               string
	BaseModel              string
	Epochs                 int
	BatchSize              int
	LearningRateMultiplier float64
	ValidationSplit        float64
	Seed                   int64
	MaxInputTokens         int
	MaxTargetTokens        int
	PollInterval           time.Duration
	Suffix                 string
}

// EvaluationConfig holds evaluation harness parameters
type EvaluationConfig struct {
	DataPath          string
	BatchSize         int
	MaxOutputTokens   int
	BERTScoreSample   int
	Seed              int64
	EmbeddingProvider string
}

// GetLLM returns the model provider configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		BaseURL:        c.GetString("openai.base_url"),
		ModelName:      c.GetString("openai.model_name"),
		EmbeddingModel: c.GetString("openai.embedding_model"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.GetString("gemini.api_key"),
		ModelName:      c.GetString("gemini.model_name"),
		EmbeddingModel: c.GetString("gemini.embedding_model"),
		Temperature:    float32(c.GetFloat64("gemini.temperature")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
	}
}

// GetOllama returns the Ollama configuration
func (c *Config) GetOllama() OllamaConfig {
	return OllamaConfig{
		BaseURL:   c.GetString("ollama.base_url"),
		ModelName: c.GetString("ollama.model_name"),
	}
}

// GetSummarizer returns the summarizer configuration
func (c *Config) GetSummarizer() SummarizerConfig {
	return SummarizerConfig{
		Checkpoint:      c.GetString("summarizer.checkpoint"),
		MaxEmails:       c.GetInt("summarizer.max_emails"),
		MaxInputTokens:  c.GetInt("summarizer.max_input_tokens"),
		MaxOutputTokens: c.GetInt("summarizer.max_output_tokens"),
		NumBeams:        c.GetInt("summarizer.num_beams"),
		EarlyStopping:   c.GetBool("summarizer.early_stopping"),
		Separator:       c.v.GetString("summarizer.separator"),
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{
		Variant: c.GetString("pipeline.variant"),
		Days:    c.GetInt("pipeline.days"),
		Folder:  c.GetString("pipeline.folder"),
	}
}

// GetMail returns the IMAP/SMTP configuration
func (c *Config) GetMail() (MailConfig, error) {
	imapTimeout, err := c.GetDuration("imap.timeout")
	if err != nil {
		return MailConfig{}, fmt.Errorf("invalid imap timeout: %w", err)
	}
	smtpTimeout, err := c.GetDuration("smtp.timeout")
	if err != nil {
		return MailConfig{}, fmt.Errorf("invalid smtp timeout: %w", err)
	}
	return MailConfig{
		IMAPAddress: c.GetString("imap.address"),
		IMAPTimeout: imapTimeout,
		SMTPAddress: c.GetString("smtp.address"),
		SMTPTimeout: smtpTimeout,
		Subject:     c.GetString("smtp.subject"),
	}, nil
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.request_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid request timeout: %w", err)
	}
	return ServerConfig{
		ListenAddress:  c.GetString("server.listen_address"),
		AllowedDomains: c.GetStringSlice("server.allowed_domains"),
		RequestTimeout: timeout,
	}, nil
}

// GetBreaker returns the circuit breaker configuration
func (c *Config) GetBreaker() (BreakerConfig, error) {
	interval, err := c.GetDuration("breaker.interval")
	if err != nil {
		return BreakerConfig{}, fmt.Errorf("invalid breaker interval: %w", err)
	}
	timeout, err := c.GetDuration("breaker.timeout")
	if err != nil {
		return BreakerConfig{}, fmt.Errorf("invalid breaker timeout: %w", err)
	}
	return BreakerConfig{
		Enabled:          c.GetBool("breaker.enabled"),
		MaxRequests:      uint32(c.GetInt("breaker.max_requests")),
		Interval:         interval,
		Timeout:          timeout,
		FailureThreshold: uint32(c.GetInt("breaker.failure_threshold")),
	}, nil
}

// GetCredentials returns the credential source configuration
func (c *Config) GetCredentials() CredentialsConfig {
	return CredentialsConfig{
		Source:         c.GetString("credentials.source"),
		EnvFile:        c.GetString("credentials.env_file"),
		KeyringService: c.GetString("credentials.keyring_service"),
		KeyringDir:     c.GetString("credentials.keyring_dir"),
	}
}

// GetTraining returns the training configuration
func (c *Config) GetTraining() (TrainingConfig, error) {
	poll, err := c.GetDuration("training.poll_interval")
	if err != nil {
		return TrainingConfig{}, fmt.Errorf("invalid training poll interval: %w", err)
	}
	return TrainingConfig{
		DataPath:               c.GetString("training.data_path"),
		BaseModel:              c.GetString("training.base_model"),
		Epochs:                 c.GetInt("training.epochs"),
		BatchSize:              c.GetInt("training.batch_size"),
		LearningRateMultiplier: c.GetFloat64("training.learning_rate_multiplier"),
		ValidationSplit:        c.GetFloat64("training.validation_split"),
		Seed:                   c.GetInt64("training.seed"),
		MaxInputTokens:         c.GetInt("training.max_input_tokens"),
		MaxTargetTokens:        c.GetInt("training.max_target_tokens"),
		PollInterval:           poll,
		Suffix:                 c.GetString("training.suffix"),
	}, nil
}

// GetEvaluation returns the evaluation configuration
func (c *Config) GetEvaluation() EvaluationConfig {
	return EvaluationConfig{
		DataPath:          c.GetString("evaluation.data_path"),
		BatchSize:         c.GetInt("evaluation.batch_size"),
		MaxOutputTokens:   c.GetInt("evaluation.max_output_tokens"),
		BERTScoreSample:   c.GetInt("evaluation.bertscore_sample"),
		Seed:              c.GetInt64("evaluation.seed"),
		EmbeddingProvider: c.GetString("evaluation.embedding_provider"),
	}
}
