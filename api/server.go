package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor/filter"
	"github.com/web3tea/doma-sentinel/processor/transformer"
	"github.com/web3tea/doma-sentinel/sentinel"
	"github.com/web3tea/doma-sentinel/sink"
)

type Config struct {
	Addr            string        `json:"addr" yaml:"addr" toml:"addr"`
	AllowedOrigins  []string      `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// Sink receives what arrives on /api/trigger-telegram
	Sink sink.Config `json:"sink" yaml:"sink" toml:"sink"`
}

const DefaultAddr = ":5000"

// Poller is the part of the poll loop the API controls.
type Poller interface {
	Toggle(ctx context.Context) (sentinel.Status, error)
	Status() sentinel.Status
	LastID(ctx context.Context) string
	RunOnce(ctx context.Context) (sentinel.CycleReport, error)
}

// Server is the HTTP control surface: filter configuration, the relay
// receiver, polling control, health and metrics.
type Server struct {
	cfg       Config
	engine    *filter.Engine
	poller    Poller
	receiver  sentinel.Relayer
	local     sink.Sink
	formatter *transformer.Formatter
	metrics   http.Handler
	logger    log.Logger

	router *gin.Engine
}

type Option func(*Server)

func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithLogger(l log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithFormatter(f *transformer.Formatter) Option {
	return func(s *Server) {
		if f != nil {
			s.formatter = f
		}
	}
}

// NewServer wires the routes. receiver filters and delivers records that
// arrive on the relay endpoint; local is used for plain messages that carry
// no event data.
func NewServer(cfg Config, engine *filter.Engine, poller Poller, receiver sentinel.Relayer, local sink.Sink, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:       cfg,
		engine:    engine,
		poller:    poller,
		receiver:  receiver,
		local:     local,
		formatter: transformer.NewFormatter(""),
		logger:    log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), cors(s.cfg.AllowedOrigins))

	g := r.Group("/api")
	g.GET("/health", s.handleHealth)
	g.GET("/filter", s.handleGetFilter)
	g.POST("/configure-filter", s.handleConfigureFilter)
	g.POST("/trigger-telegram", s.handleTrigger)
	g.POST("/test-extraction", s.handleTestExtraction)
	g.GET("/polling", s.handlePollingStatus)
	g.POST("/polling/toggle", s.handlePollingToggle)
	g.POST("/polling/run", s.handlePollingRun)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP server listening on %s", srv.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
