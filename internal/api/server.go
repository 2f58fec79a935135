package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"bitunix-signal-bot/internal/ingest"
	"bitunix-signal-bot/internal/metrics"
	"bitunix-signal-bot/internal/pairs"
	"bitunix-signal-bot/internal/queue"
)

// Server is the webhook ingress. One POST endpoint feeds the symbol
// queues; the rest is health and introspection.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	queues     *queue.SymbolQueueManager
	view       *pairs.View
	config     ServerConfig
	logger     zerolog.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
}

// NewServer builds the router. Call Start to listen.
func NewServer(cfg ServerConfig, queues *queue.SymbolQueueManager, view *pairs.View, logger zerolog.Logger) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router: router,
		queues: queues,
		view:   view,
		config: cfg,
		logger: logger.With().Str("component", "APIServer").Logger(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/webhook", s.handleWebhook)
	s.router.GET("/queue/:symbol", s.handleQueueDepth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleWebhook accepts a TradingView alert, resolves symbol and signal
// and enqueues it. 400 for unusable payloads, 429 when the symbol's lane
// is full.
func (s *Server) handleWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		s.bad(c, http.StatusBadRequest, "unreadable body")
		return
	}

	payload := ingest.ParseBody(raw)
	if payload == nil {
		metrics.SignalsRejected.WithLabelValues("empty_body").Inc()
		s.bad(c, http.StatusBadRequest, "empty or invalid body")
		return
	}

	res := ingest.Resolve(payload, s.view)
	if res.Symbol == "" {
		metrics.SignalsRejected.WithLabelValues("no_symbol").Inc()
		s.bad(c, http.StatusBadRequest, "missing symbol/ticker and none found in content")
		return
	}
	if res.Signal == "" {
		metrics.SignalsRejected.WithLabelValues("no_signal").Inc()
		s.bad(c, http.StatusBadRequest, "invalid or undetected signal (LONG/SHORT/BUY_TP/SELL_TP)")
		return
	}
	if _, ok := s.view.Get(res.Symbol); !ok {
		metrics.SignalsRejected.WithLabelValues("unconfigured").Inc()
		s.bad(c, http.StatusBadRequest, fmt.Sprintf("symbol without config: %s", res.Symbol))
		return
	}

	payload["signal"] = string(res.Signal)
	ok, err := s.queues.Enqueue(queue.EnqueuedSignal{
		Symbol:     res.Symbol,
		Payload:    payload,
		ReceivedTs: time.Now(),
	})
	if err != nil {
		s.bad(c, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		metrics.SignalsRejected.WithLabelValues("queue_full").Inc()
		s.bad(c, http.StatusTooManyRequests, fmt.Sprintf("queue full for %s", res.Symbol))
		return
	}

	metrics.SignalsAccepted.WithLabelValues(res.Symbol, string(res.Signal)).Inc()
	metrics.QueueDepth.WithLabelValues(res.Symbol).Set(float64(s.queues.QSize(res.Symbol)))
	s.logger.Info().Str("symbol", res.Symbol).Str("signal", string(res.Signal)).Msg("signal enqueued")

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"enqueued": true,
		"symbol":   res.Symbol,
		"signal":   string(res.Signal),
	})
}

// handleQueueDepth reports the FIFO backlog of one symbol.
func (s *Server) handleQueueDepth(c *gin.Context) {
	symbol := c.Param("symbol")
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"symbol": symbol,
		"depth":  s.queues.QSize(symbol),
	})
}

func (s *Server) bad(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"ok": false, "error": msg})
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("webhook server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
