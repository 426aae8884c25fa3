package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/server/endpoint"
	"github.com/fernandomesquita/stenopro/server/middleware"
)

// Server serves the Gin engine over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	cfg     Config
	engine  *gin.Engine
	handler http.Handler
	http    *http.Server
	log     *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	serveErr error
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// New builds a server for cfg. No middleware or routes are installed.
func New(cfg Config, log *logger.Logger) *Server {
	mode := gin.ReleaseMode
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	handler := h2c.NewHandler(engine, &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          seconds(cfg.IdleTimeout),
	})

	return &Server{
		cfg:     cfg,
		engine:  engine,
		handler: handler,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       seconds(cfg.ReadTimeout),
			WriteTimeout:      seconds(cfg.WriteTimeout),
			IdleTimeout:       seconds(cfg.IdleTimeout),
		},
		log: log.WithComponent("server"),
	}
}

// GinEngine returns the engine routes are registered on.
func (s *Server) GinEngine() *gin.Engine { return s.engine }

// Handler returns the root handler including h2c.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the listen address and serves in the background. The port is
// accepting connections when Start returns.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.serveErr = nil
	s.mu.Unlock()

	go s.serve(ln)
	s.log.Info("HTTP server started", logger.Fields("addr", ln.Addr().String()))
	return nil
}

func (s *Server) serve(ln net.Listener) {
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return
	}
	s.log.Error("HTTP server stopped serving", logger.ErrorFields("serve", err))
	s.mu.Lock()
	s.serveErr = err
	s.mu.Unlock()
}

// state reports whether the server is bound and the error that ended
// serving, if any.
func (s *Server) state() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil, s.serveErr
}

// Stop drains open connections for up to the configured shutdown timeout,
// then closes whatever is left.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	drainCtx, cancel := context.WithTimeout(ctx, seconds(s.cfg.ShutdownTimeout))
	defer cancel()

	if err := s.http.Shutdown(drainCtx); err != nil {
		s.log.Warn("Drain incomplete, closing connections", logger.ErrorFields("shutdown", err))
		if err := s.http.Close(); err != nil {
			return fmt.Errorf("close http server: %w", err)
		}
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// OnShutdown registers fn to run as Stop begins. Long-lived event streams
// use it to end before the drain.
func (s *Server) OnShutdown(fn func()) {
	s.http.RegisterOnShutdown(fn)
}

// Addr is the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.http.Addr
	}
	return s.listener.Addr().String()
}

// ApplyMiddleware installs the standard chain. A nil authCfg leaves the API
// open.
func (s *Server) ApplyMiddleware(authCfg *middleware.AuthConfig) {
	chain := []gin.HandlerFunc{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.GinCORS(&s.cfg.CORS),
	}
	if limit, _ := ParseSize(s.cfg.MaxBodySize); limit > 0 {
		chain = append(chain, middleware.GinBodySizeLimit(limit))
	}
	chain = append(chain, middleware.RequestLogger(s.log))
	if s.cfg.RateLimit.RequestsPerMinute > 0 {
		chain = append(chain, middleware.RateLimit(s.cfg.RateLimit))
	}
	if authCfg != nil {
		cfg := *authCfg
		cfg.SkipPaths = append(systemPathList(), cfg.SkipPaths...)
		chain = append(chain, middleware.Auth(cfg))
	}
	s.engine.Use(chain...)
}

// RegisterDefaultEndpoints registers the probe, build info and metrics
// endpoints.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	probes := map[string]gin.HandlerFunc{
		"/health":  endpoint.Health(serviceName, checker),
		"/livez":   endpoint.Liveness(serviceName),
		"/readyz":  endpoint.Readiness(serviceName, checker),
		"/version": endpoint.Version(),
		"/info":    endpoint.Info(serviceName),
		"/metrics": endpoint.Metrics(),
	}
	for _, p := range systemPathList() {
		if h, ok := probes[p]; ok {
			s.engine.GET(p, h)
		}
	}
}

// ApplyDefaults installs the middleware chain and default endpoints.
func (s *Server) ApplyDefaults(serviceName string, checker endpoint.HealthChecker, authCfg *middleware.AuthConfig) {
	s.ApplyMiddleware(authCfg)
	s.RegisterDefaultEndpoints(serviceName, checker)
}
