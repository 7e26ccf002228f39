package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/config"
	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/serverdb"
	"github.com/Xenomega/EchoRelay-sub000/internal/service"
	"github.com/Xenomega/EchoRelay-sub000/internal/util"
)

// Server is the HTTP front of the relay: it terminates the websocket
// connections game servers use to register, and exposes the read-only
// operator API.
type Server struct {
	cfg      *config.Config
	eventBus *events.EventBus
	svc      *serverdb.Service

	httpServer *http.Server
	router     *gin.Engine
	upgrader   websocket.Upgrader

	startedAt time.Time
}

// NewServer creates a new API server around the serverdb protocol handler.
func NewServer(cfg *config.Config, eventBus *events.EventBus, svc *serverdb.Service) *Server {
	// Set Gin mode based on log level
	if cfg.GetApplicationData().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:      cfg,
		eventBus: eventBus,
		svc:      svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Game server clients do not send an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start initializes and starts the API server. It blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.startedAt = time.Now()
	s.router = s.buildRouter(ctx)

	relay := s.cfg.GetRelayData()
	addr := fmt.Sprintf("%s:%d", relay.ListenAddress, relay.APIPort)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
		// No ReadTimeout/WriteTimeout: websocket service connections are
		// long-lived.
		IdleTimeout: 120 * time.Second,
	}

	security := s.cfg.GetApplicationData().Security
	if security.TLSEnabled {
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if !util.FileExists(security.TLSCertFile) || !util.FileExists(security.TLSKeyFile) {
			log.Info().
				Str("cert", security.TLSCertFile).
				Str("key", security.TLSKeyFile).
				Msg("TLS certificate not found, generating self-signed pair")
			if err := util.GenerateSelfSignedCert(security.TLSCertFile, security.TLSKeyFile); err != nil {
				return fmt.Errorf("failed to generate TLS certificate: %w", err)
			}
		}
	}

	log.Info().Str("addr", addr).Msg("relay HTTP server starting")

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	var err error
	if security.TLSEnabled {
		err = s.httpServer.ListenAndServeTLS(security.TLSCertFile, security.TLSKeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}

	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter(ctx context.Context) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	// CORS for the operator API
	allowedOrigins := s.cfg.GetApplicationData().Security.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	// ---- Game server service endpoint (websocket) ----
	router.GET("/serverdb", s.handleServerDBConnect(ctx))

	// ---- Public endpoints ----
	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/get_server_info", s.handleGetServerInfo)
		public.GET("/get_relay_version", s.handleGetVersion)
	}

	// ---- Monitor endpoints (read-only views over the registry) ----
	monitor := router.Group("/api/monitor")
	{
		monitor.GET("/get_servers", s.handleGetServers)
		monitor.GET("/get_server/:server_id", s.handleGetServer)
		monitor.GET("/get_total_servers", s.handleGetTotalServers)
		monitor.GET("/get_cpu_usage", s.handleGetCPUUsage)
		monitor.GET("/get_memory_usage", s.handleGetMemoryUsage)
		monitor.GET("/get_disk_usage", s.handleGetDiskUsage)
		monitor.GET("/get_relay_log_entries", s.handleGetLogEntries)
	}

	// ---- Control endpoints (session operations on registered servers) ----
	control := router.Group("/api/control")
	{
		control.POST("/end_session/:server_id", s.handleEndSession)
		control.POST("/lock_session/:server_id", s.handleLockSession)
		control.POST("/unlock_session/:server_id", s.handleUnlockSession)
		control.POST("/kick_player/:server_id/:player_session", s.handleKickPlayer)
		control.POST("/disconnect_server/:server_id", s.handleDisconnectServer)
	}

	// ---- Configure endpoints ----
	configure := router.Group("/api/configure")
	{
		configure.GET("/get_config", s.handleGetConfig)
		configure.POST("/set_relay_data", s.handleSetRelayData)
		configure.POST("/set_app_data", s.handleSetAppData)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// handleServerDBConnect upgrades a game server connection to a websocket
// and hands it to the serverdb protocol handler.
func (s *Server) handleServerDBConnect(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug().Err(err).Str("client_ip", c.ClientIP()).Msg("websocket upgrade failed")
			return
		}
		peer := service.NewWebsocketPeer("serverdb", conn, c.Request.URL)
		go s.svc.HandleConnection(ctx, peer)
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
