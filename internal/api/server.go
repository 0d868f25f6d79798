// Package api provides the HTTP presentation adapter over the cache core.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/cache"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
	"github.com/gorilla/mux"
)

// Service interfaces for dependency injection and testing

// CacheManagerInterface defines the cache operations the API consumes
type CacheManagerInterface interface {
	UpdateCacheForAccount(ctx context.Context, accountID string) (*cache.RefreshResult, error)
	UpdateCacheForPeriod(ctx context.Context, accountID string, period types.Period) (*cache.RefreshResult, error)
	GetCachedTransactionsForPeriod(ctx context.Context, accountID string, period types.Period, startTime, endTime *int64) ([]types.TransactionRecord, error)
	GetRevenueForPeriod(ctx context.Context, accountID string, period types.Period, start, end int64) (*types.RevenueSummary, error)
	IsCacheValid(ctx context.Context, accountID string, period types.Period, maxAgeMinutes int) bool
	Status(ctx context.Context, accountID string, maxAgeMinutes int) []cache.PeriodStatus
}

// SchedulerInterface defines the scheduler operations the API consumes
type SchedulerInterface interface {
	ScheduleAccountUpdate(ctx context.Context, accountID string)
	RunPass(ctx context.Context) error
	IsRunning() bool
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	manager    CacheManagerInterface
	scheduler  SchedulerInterface
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxAgeMinutes   int // staleness threshold applied by read paths
	RateLimitRPS    int
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, manager CacheManagerInterface, scheduler SchedulerInterface) *Server {
	if config.MaxAgeMinutes <= 0 {
		config.MaxAgeMinutes = 5
	}

	s := &Server{
		router:    mux.NewRouter(),
		manager:   manager,
		scheduler: scheduler,
		config:    config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, 2*s.config.RateLimitRPS)

	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(rateLimiter.Middleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/accounts/{accountId}/transactions/{period}", s.handleGetTransactions).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{accountId}/revenue/{period}", s.handleGetRevenue).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{accountId}/cache/refresh", s.handleRefreshAccount).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{accountId}/cache/status", s.handleCacheStatus).Methods(http.MethodGet)
	v1.HandleFunc("/cache/refresh", s.handleFleetRefresh).Methods(http.MethodPost)
}

// Router returns the configured router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
