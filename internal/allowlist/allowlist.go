package allowlist

import (
	"strings"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

// Checker decides whether a requester's address may use the service.
// An empty domain list allows everyone. Entries starting with "." also
// match any subdomain.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new allowlist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized requester allowlist", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// Allowed reports whether address belongs to an allowed domain
func (c *Checker) Allowed(address string) bool {
	if len(c.domains) == 0 {
		return true
	}

	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return false
	}
	at := strings.LastIndex(parsed.Address, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(parsed.Address[at+1:])

	for _, allowed := range c.domains {
		if allowed == domain || (strings.HasPrefix(allowed, ".") && strings.HasSuffix(domain, allowed)) {
			return true
		}
	}

	if c.logger != nil {
		c.logger.Debug("Requester domain not allowed", zap.String("domain", domain))
	}
	return false
}
