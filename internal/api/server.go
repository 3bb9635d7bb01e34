package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"praxis/internal/config"
	"praxis/internal/database"
	"praxis/internal/metrics"
	"praxis/internal/risk"
)

// Server serves the risk endpoints over HTTP.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
	engine     *risk.Engine
	repo       database.Repository
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
}

// NewServer wires routes and middleware. repo may be nil, in which case the
// stored series endpoints are not registered.
func NewServer(
	logger *slog.Logger,
	cfg *config.Config,
	engine *risk.Engine,
	repo database.Repository,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) (*Server, error) {
	corsCfg := corsConfig(cfg.CORS)
	if err := corsCfg.Validate(); err != nil {
		return nil, fmt.Errorf("cors config: %w", err)
	}

	s := &Server{
		logger:  logger,
		cfg:     cfg,
		engine:  engine,
		repo:    repo,
		metrics: m,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(corsCfg))
	s.router = router
	s.registerRoutes(gatherer)

	s.httpServer = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

// Router returns the internal Gin engine for testing purposes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.router.POST("/calculate_risk/", s.calculateRisk)
	s.router.OPTIONS("/calculate_risk/", s.preflight)
	s.router.POST("/upload_csv/", s.uploadCSV)
	s.router.GET("/ws/calculate_risk", s.serveRiskWS)

	if s.repo != nil {
		s.router.POST("/series/:symbol", s.storeSeries)
		s.router.GET("/volatility/:symbol", s.seriesVolatility)
	}
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
	if c.AllowsAll() {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowOrigins
	}
	return cc
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.CORS.AllowsAll() {
		return true
	}
	return slices.Contains(s.cfg.CORS.AllowOrigins, origin)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"clientIP", c.ClientIP(),
		)
	}
}
