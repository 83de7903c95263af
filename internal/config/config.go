package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/email-tldr/")
	v.AddConfigPath("$HOME/.email-tldr")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("EMAIL_TLDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile loads configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("EMAIL_TLDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Model provider defaults
	v.SetDefault("llm.provider", "openai")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.temperature", 0.1)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.temperature", 0.1)

	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "amazon.titan-text-express-v1")
	v.SetDefault("bedrock.temperature", 0.1)

	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model_name", "llama3")

	// Summarizer defaults
	v.SetDefault("summarizer.checkpoint", "models/email_summarizer.json")
	v.SetDefault("summarizer.max_emails", 5)
	v.SetDefault("summarizer.max_input_tokens", 1024)
	v.SetDefault("summarizer.max_output_tokens", 200)
	v.SetDefault("summarizer.num_beams", 4)
	v.SetDefault("summarizer.early_stopping", true)
	v.SetDefault("summarizer.separator", " ")

	// Pipeline defaults
	v.SetDefault("pipeline.variant", "digest")
	v.SetDefault("pipeline.days", 0)
	v.SetDefault("pipeline.folder", "")

	// Mail transport defaults
	v.SetDefault("imap.address", "imap.gmail.com:993")
	v.SetDefault("imap.timeout", "30s")
	v.SetDefault("smtp.address", "smtp.gmail.com:587")
	v.SetDefault("smtp.subject", "Your Weekly Email-TLDR!")
	v.SetDefault("smtp.timeout", "30s")

	// Server defaults
	v.SetDefault("server.listen_address", "127.0.0.1:8000")
	v.SetDefault("server.allowed_domains", []string{})
	v.SetDefault("server.request_timeout", "5m")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "data/summary_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/email_tldr?parseTime=true")

	// Circuit breaker defaults
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", "1m")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.failure_threshold", 5)

	// Credential source for the one-shot CLI
	v.SetDefault("credentials.source", "env")
	v.SetDefault("credentials.env_file", ".env")
	v.SetDefault("credentials.keyring_service", "email-tldr")
	v.SetDefault("credentials.keyring_dir", "~/.email-tldr/keyring")
	v.SetDefault("credentials.keyring_password", "")

	// Training defaults
	v.SetDefault("training.data_path", "data/raw/merged_email_data.csv")
	v.SetDefault("training.base_model", "gpt-4o-mini-2024-07-18")
	v.SetDefault("training.epochs", 5)
	v.SetDefault("training.batch_size", 8)
	v.SetDefault("training.learning_rate_multiplier", 1.0)
	v.SetDefault("training.validation_split", 0.1)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.max_input_tokens", 512)
	v.SetDefault("training.max_target_tokens", 128)
	v.SetDefault("training.poll_interval", "30s")
	v.SetDefault("training.suffix", "email-tldr")

	// Evaluation defaults
	v.SetDefault("evaluation.data_path", "data/raw/merged_email_data.csv")
	v.SetDefault("evaluation.batch_size", 8)
	v.SetDefault("evaluation.max_output_tokens", 128)
	v.SetDefault("evaluation.bertscore_sample", 100)
	v.SetDefault("evaluation.seed", 42)
	v.SetDefault("evaluation.embedding_provider", "openai")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
