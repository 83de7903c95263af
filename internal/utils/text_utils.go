package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor prepares email text for the model
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateTokens keeps the first maxTokens whitespace-separated tokens of text.
// A non-positive limit returns the text unchanged.
func (tp *TextProcessor) TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	fields := strings.Fields(text)
	if len(fields) <= maxTokens {
		return text
	}

	truncated := strings.Join(fields[:maxTokens], " ")
	tp.logger.Debug("Text truncated",
		zap.Int("original_tokens", len(fields)),
		zap.Int("max_tokens", maxTokens))
	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))
	return sanitized
}

// ProcessText sanitizes and truncates text in one operation
func (tp *TextProcessor) ProcessText(text string, maxTokens int) string {
	return tp.TruncateTokens(tp.SanitizeUTF8(text), maxTokens)
}

var bodyCleaner = strings.NewReplacer("\r", "", "\n", "", "\u200c", "")

// CleanBody removes carriage returns, newlines and zero-width non-joiners
func CleanBody(s string) string {
	return bodyCleaner.Replace(s)
}

// CollapseWhitespace trims s and replaces every whitespace run with a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
