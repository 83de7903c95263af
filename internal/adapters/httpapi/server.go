package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server is the HTTP frontend of the TL;DR pipeline
type Server struct {
	listenAddr string
	handler    *Handler
	logger     *zap.Logger
	server     *http.Server
	listener   net.Listener
}

// NewServer creates a new server listening on listenAddr
func NewServer(listenAddr string, handler *Handler, logger *zap.Logger) *Server {
	return &Server{
		listenAddr: listenAddr,
		handler:    handler,
		logger:     logger,
	}
}

// Router builds the gin engine with all routes and middleware
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(recovery(s.logger), accessLog(s.logger), cors())

	r.GET("/", s.handler.Ping)
	r.POST("/summarize", s.handler.Summarize)
	return r
}

// Start begins serving in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP server starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.listenAddr
	}
	return s.listener.Addr().String()
}

// Stop waits for in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
