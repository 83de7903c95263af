package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/credentials"
)

// Runner runs the pipeline once for a set of credentials
type Runner interface {
	Run(ctx context.Context, creds core.Credentials) (*core.RunResult, error)
}

// Allower decides whether a requester may use the service
type Allower interface {
	Allowed(address string) bool
}

// SummarizeRequest is the POST /summarize body
type SummarizeRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SummarizeResponse is the POST /summarize reply. Error is null on success.
type SummarizeResponse struct {
	Success      bool    `json:"success"`
	Error        *string `json:"error"`
	Kind         string  `json:"kind,omitempty"`
	Summary      string  `json:"summary,omitempty"`
	RunID        string  `json:"run_id,omitempty"`
	MessageCount *int    `json:"message_count,omitempty"`
}

// Handler serves the TL;DR endpoints
type Handler struct {
	runner  Runner
	allow   Allower
	timeout time.Duration
	logger  *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(runner Runner, allow Allower, timeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		runner:  runner,
		allow:   allow,
		timeout: timeout,
		logger:  logger,
	}
}

// Ping answers the health check
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ping": "pong"})
}

// Summarize runs the pipeline for the credentials in the request body
func (h *Handler) Summarize(c *gin.Context) {
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, nil, core.Wrap(core.KindInvalidRequest, "decode request", err))
		return
	}

	creds, err := credentials.Static{Address: req.Email, Secret: req.Password}.Resolve(c.Request.Context())
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	if h.allow != nil && !h.allow.Allowed(creds.Address) {
		h.fail(c, nil, core.Wrap(core.KindForbidden, "allowlist", errors.New("requester domain is not allowed")))
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.runner.Run(ctx, creds)
	if err != nil {
		h.fail(c, res, err)
		return
	}

	count := res.MessageCount
	c.JSON(http.StatusOK, SummarizeResponse{
		Success:      true,
		Summary:      res.Summary,
		RunID:        res.RunID,
		MessageCount: &count,
	})
}

func (h *Handler) fail(c *gin.Context, res *core.RunResult, err error) {
	kind := core.KindOf(err)
	msg := err.Error()
	resp := SummarizeResponse{Error: &msg, Kind: kind.String()}
	if res != nil {
		resp.Summary = res.Summary
		resp.RunID = res.RunID
		count := res.MessageCount
		resp.MessageCount = &count
	}

	status := StatusFor(kind)
	fields := []zap.Field{zap.String("kind", kind.String()), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Summarize request failed", fields...)
	} else {
		h.logger.Warn("Summarize request rejected", fields...)
	}
	c.JSON(status, resp)
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindInvalidRequest:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindConnection, core.KindDelivery:
		return http.StatusBadGateway
	case core.KindExtraction:
		return http.StatusUnprocessableEntity
	case core.KindGeneration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
