package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"pair-analytics/src/grpc_control"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/metrics"
	"pair-analytics/src/models"
)

// -----------------------------------------------------------------------------
// AnalyticsServer
// -----------------------------------------------------------------------------

// AnalyticsServer is the presentation boundary: REST endpoints, CSV export,
// prometheus metrics and websocket subscriptions driven by the Refresher.
type AnalyticsServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Runner    PairRunner
	Refresher *Refresher
	Control   *grpc_control.ControlService
	engine    *gin.Engine
	http      *http.Server

	// WebSocket clients, owned by the hub loop
	clients     map[*Client]string
	clientCount atomic.Int64
	broadcast   chan models.MPushMessage
	register    chan *Client
	unregister  chan *Client
	subscribe   chan clientSubscription
	direct      chan directMessage

	ctx    context.Context
	cancel context.CancelFunc
}

var _ interfaces.IDataExchanger = (*AnalyticsServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAnalyticsServer(
	cfg *models.MConfig,
	runner PairRunner,
	cache interfaces.IResultCache,
	pub interfaces.ISignalPublisher,
	control *grpc_control.ControlService,
	log *logger.Logger,
) *AnalyticsServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &AnalyticsServer{
		Config:     cfg,
		Logger:     log.Named("Server"),
		Runner:     runner,
		Control:    control,
		engine:     gin.New(),
		clients:    make(map[*Client]string),
		broadcast:  make(chan models.MPushMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan clientSubscription),
		direct:     make(chan directMessage),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.Refresher = NewRefresher(runner, cache, pub, cfg.Refresh, s.Logger)
	s.Refresher.push = func(msg models.MPushMessage) { s.Broadcast(msg) }

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// CORS for local dashboards
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *AnalyticsServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/analytics", s.getAnalytics)
	api.GET("/analytics/export.csv", s.exportCSV)
	api.GET("/sources", s.getSources)
	api.PUT("/symbols", s.putSymbols)

	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the routes, mainly for tests.
func (s *AnalyticsServer) Handler() http.Handler {
	return s.engine
}

func (s *AnalyticsServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Zerolog().Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// startWorkers launches the hub and the refresh loop.
func (s *AnalyticsServer) startWorkers() {
	go s.handleWebsockets()
	go s.Refresher.Run(s.ctx)
}

// Start serves HTTP until Stop is called.
func (s *AnalyticsServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.startWorkers()

	s.Logger.Info("Starting server on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down and stops the background loops.
func (s *AnalyticsServer) Stop() error {
	s.cancel()
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
