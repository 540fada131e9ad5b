package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"smc-advisor/internal/autopilot"
	"smc-advisor/internal/confluence"
	"smc-advisor/internal/events"
	"smc-advisor/internal/logging"
	"smc-advisor/internal/marketdata"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// TradeGenerator produces a trade for a modality
type TradeGenerator interface {
	Generate(ctx context.Context, modality autopilot.Modality) (*autopilot.TradeCandidate, error)
}

// ReversalEvaluator checks an open position for a reversal
type ReversalEvaluator interface {
	Evaluate(ctx context.Context, pos autopilot.Position) (*autopilot.ReversalSignal, error)
}

// AnalysisSource fetches candles for several intervals at once
type AnalysisSource interface {
	FetchTimeframes(ctx context.Context, symbol string, timeframes []marketdata.Timeframe, limit int) (*marketdata.MultiTimeframeData, error)
}

// Store reads persisted trades and reversal evaluations
type Store interface {
	HealthCheck(ctx context.Context) error
	ListTradeCandidates(ctx context.Context, limit int) ([]autopilot.TradeCandidate, error)
	GetTradeCandidate(ctx context.Context, id string) (*autopilot.TradeCandidate, error)
	ListReversalSignals(ctx context.Context, symbol string, limit int) ([]autopilot.ReversalSignal, error)
}

// Dependencies are the services behind the HTTP surface
type Dependencies struct {
	Generator TradeGenerator
	Reversals ReversalEvaluator
	Analysis  AnalysisSource
	Store     Store            // Can be nil when no database is configured
	EventBus  *events.EventBus // Can be nil, events are then not pushed
	Tuning    autopilot.Config // Periods and thresholds for the analysis endpoint
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      ServerConfig
	deps        Dependencies
	scorer      *confluence.Scorer
	hub         *WSHub
	rateLimiter *RateLimiter // Guards endpoints that reach the exchange
	logger      *logging.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port               int
	Host               string
	ProductionMode     bool
	AllowedOrigins     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	RateLimitPerMinute int
	DefaultCandleLimit int
}

// NewServer creates a new API server
func NewServer(config ServerConfig, deps Dependencies, logger *logging.Logger) (*Server, error) {
	// Set Gin mode
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.RateLimitPerMinute <= 0 {
		config.RateLimitPerMinute = 120
	}
	if config.DefaultCandleLimit <= 0 {
		config.DefaultCandleLimit = 200
	}

	scorer := confluence.NewScorer()
	if err := scorer.SetWeights(deps.Tuning.Weights); err != nil {
		return nil, fmt.Errorf("invalid sentiment weights: %w", err)
	}

	logger = logger.WithComponent("api")
	router := gin.New()

	// Middleware
	router.Use(requestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(config.AllowedOrigins)))

	server := &Server{
		router:      router,
		config:      config,
		deps:        deps,
		scorer:      scorer,
		hub:         NewWSHub(logger),
		rateLimiter: NewRateLimiter(config.RateLimitPerMinute, time.Minute),
		logger:      logger,
	}

	go server.hub.Run()
	if deps.EventBus != nil {
		// Relay every event to websocket clients
		deps.EventBus.SubscribeAll(server.hub.BroadcastEvent)
	}

	server.setupRoutes()
	return server, nil
}

func corsConfig(origins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "X-Trace-ID"}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	return corsConfig
}

// rateLimitMiddleware limits requests per endpoint to avoid exchange bans
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "Too many requests to this endpoint. Please slow down to avoid exchange API bans.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// WebSocket event stream
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	{
		api.GET("/modalities", s.handleListModalities)
		api.GET("/trades", s.handleListTrades)
		api.GET("/trades/:id", s.handleGetTrade)
		api.GET("/positions/reversals", s.handleListReversals)

		// Endpoints that fetch market data
		market := api.Group("", s.rateLimitMiddleware())
		market.POST("/trades/generate", s.handleGenerateTrade)
		market.POST("/positions/reversal", s.handleEvaluateReversal)
		market.GET("/analysis/:symbol", s.handleAnalysis)
	}
}

// Router exposes the handler for embedding and tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDuration(s.config.ReadTimeout, 15*time.Second),
		WriteTimeout: orDuration(s.config.WriteTimeout, 30*time.Second),
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.hub.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func orDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
