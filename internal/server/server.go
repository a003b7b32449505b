package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	app "github.com/bilalinamdar/cloud-slang"
	"github.com/bilalinamdar/cloud-slang/internal/engine"
	"github.com/bilalinamdar/cloud-slang/internal/events"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/util"
)

// Server implements the HTTP API server for the engine
type Server struct {
	engine   *engine.Engine
	eventHub *events.Hub
	metrics  http.Handler
	sockets  util.Set[*Client]
	mu       sync.Mutex
}

var (
	ErrInvalidJSON       = errors.New("invalid JSON")
	ErrEntryNotFound     = errors.New("entry executable not provided")
	ErrArtifactRequired  = errors.New("artifact name is required")
	ErrInvalidProperties = errors.New("invalid system properties")
)

// NewServer creates a new HTTP API server. A nil metrics handler disables
// the metrics endpoint
func NewServer(
	eng *engine.Engine, hub *events.Hub, metrics http.Handler,
) *Server {
	return &Server{
		engine:   eng,
		eventHub: hub,
		metrics:  metrics,
		sockets:  util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers", "Content-Type, Authorization",
		)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	eng := router.Group("/engine")
	{
		eng.GET("/health", s.handleHealth)
		if s.metrics != nil {
			eng.GET("/metrics", gin.WrapH(s.metrics))
		}

		// Artifact endpoints
		eng.GET("/artifact", s.listArtifacts)
		eng.POST("/artifact", s.compileArtifact)
		eng.GET("/artifact/:name", s.getArtifact)

		// Run endpoints
		eng.POST("/run", s.startRun)
		eng.GET("/run/:runID", s.getRun)
		eng.DELETE("/run/:runID", s.cancelRun)

		// WebSocket
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service:   app.Name,
		Status:    "ok",
		Artifacts: len(s.engine.Artifacts()),
	})
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, api.ErrorResponse{
		Error:  msg,
		Status: status,
	})
}
