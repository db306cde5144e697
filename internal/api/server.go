package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ducminhle1904/smart-ea/internal/advisor"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/monitoring"
	"github.com/ducminhle1904/smart-ea/internal/risk"
)

// EventStore is the journal surface the API reads and writes.
type EventStore interface {
	Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error
	Recent(ctx context.Context, n int) ([]journal.Event, error)
	Subscribe(fn journal.Subscriber) func()
}

// Options configures a Server.
type Options struct {
	Port         int
	Mode         string // gin mode, default release
	RiskPerTrade float64
	Logger       *logger.Logger
	Health       http.Handler
}

// Server HTTP API server
type Server struct {
	router       *gin.Engine
	advisor      *advisor.Advisor
	events       EventStore
	hub          *Hub
	health       http.Handler
	logger       *logger.Logger
	port         int
	riskPerTrade float64
	unsubscribe  func()
}

// NewServer creates the API server. events may be nil, in which case /log
// is unavailable and the dashboard shows no logs.
func NewServer(adv *advisor.Advisor, events EventStore, opts Options) *Server {
	if opts.Mode == "" {
		opts.Mode = gin.ReleaseMode
	}
	gin.SetMode(opts.Mode)
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.RiskPerTrade <= 0 {
		opts.RiskPerTrade = risk.DefaultRiskPerTrade
	}
	if opts.Health == nil {
		opts.Health = monitoring.NewHealthChecker()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(opts.Logger))
	router.Use(corsMiddleware())
	router.SetHTMLTemplate(dashboardTemplate)

	s := &Server{
		router:       router,
		advisor:      adv,
		events:       events,
		hub:          NewHub(opts.Logger),
		health:       opts.Health,
		logger:       opts.Logger,
		port:         opts.Port,
		riskPerTrade: opts.RiskPerTrade,
	}
	if events != nil {
		s.unsubscribe = events.Subscribe(s.hub.BroadcastEvent)
	}

	s.setupRoutes()
	return s
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown API server: %w", err)
		}
		s.logger.Info("API server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// corsMiddleware CORS middleware
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// setupRoutes sets up routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleDashboard)
	s.router.GET("/strategy", s.handleStrategy)
	s.router.GET("/status", s.handleStatus)
	s.router.POST("/risk/lot", s.handleRiskLot)
	s.router.POST("/update", s.handleUpdate)
	s.router.POST("/log", s.handleLog)

	s.router.GET("/health", gin.WrapH(s.health))
	s.router.GET("/metrics", gin.WrapH(monitoring.NewMetricsHandler()))
	s.router.GET("/ws", gin.WrapF(s.hub.ServeWS))

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("route not found: %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})
}
