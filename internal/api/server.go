// Package api serves the usher HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usherlabs/custody/internal/api/middleware"
	"github.com/usherlabs/custody/internal/auth"
)

// Server represents the API server
type Server struct {
	echo        *echo.Echo
	addr        string
	tokenConfig *auth.TokenConfig
	metrics     *prometheus.Registry

	indexedTotal prometheus.Counter
	indexed      *lru.Cache[string, time.Time] // DID -> first seen
}

// DefaultIndexSize bounds how many DIDs the server remembers.
const DefaultIndexSize = 10000

// Config holds server configuration
type Config struct {
	Addr        string            // e.g., ":8080"
	TokenConfig *auth.TokenConfig // DID token validation settings
	Logging     bool              // request logging
	IndexSize   int               // DIDs remembered; 0 means DefaultIndexSize
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.Logging {
		e.Use(echomw.Logger())
	}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	size := cfg.IndexSize
	if size <= 0 {
		size = DefaultIndexSize
	}
	indexed, err := lru.New[string, time.Time](size)
	if err != nil {
		panic(fmt.Sprintf("api: index cache: %v", err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		echo:        e,
		addr:        cfg.Addr,
		tokenConfig: cfg.TokenConfig,
		metrics:     reg,
		indexedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "usher",
			Name:      "dids_indexed_total",
			Help:      "Distinct DIDs seen on authenticated requests.",
		}),
		indexed: indexed,
	}

	s.registerRoutes(middleware.NewMetrics(reg))
	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes(metrics *middleware.Metrics) {
	s.echo.GET("/api/health", s.handleHealthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))

	protected := s.echo.Group("/api")
	protected.Use(middleware.DIDAuth(s.tokenConfig, metrics))
	protected.GET("/wallets", s.handleWallets)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// handleHealthCheck returns system health status
func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWallets indexes the DID presented as authorisation. Only the most
// recently seen DIDs are kept; an evicted DID is indexed again.
func (s *Server) handleWallets(c echo.Context) error {
	id := middleware.GetDID(c)

	firstSeen := time.Now().UTC()
	if prev, ok, _ := s.indexed.PeekOrAdd(id, firstSeen); ok {
		firstSeen = prev
		s.indexed.Get(id)
	} else {
		s.indexedTotal.Inc()
	}

	resp := map[string]any{
		"success":    true,
		"did":        id,
		"first_seen": firstSeen.Format(time.RFC3339),
	}
	if claims := middleware.GetClaims(c); claims != nil && claims.Wallet != nil {
		resp["wallet"] = claims.Wallet
	}
	return c.JSON(http.StatusOK, resp)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	fmt.Printf("Starting HTTP server on %s\n", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
