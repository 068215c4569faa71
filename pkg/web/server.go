// Package web provides an HTTP server with routing and middleware.
// It uses Gin framework for high-performance web handling.
package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/models"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// FleetStatus reports how many bot clients are connected
type FleetStatus interface {
	ReadyCount() int
	Total() int
}

// DatabaseStatus reports the database connection state
type DatabaseStatus interface {
	GetStatus(ctx context.Context) (string, bool)
}

// PremiumService is the read side of the subscription service
type PremiumService interface {
	Status(ctx context.Context, guildID string) (*subscription.StatusReport, error)
	LookupCode(ctx context.Context, code string) (*models.RedemptionCode, error)
	ActiveSubscriptions(ctx context.Context) ([]*subscription.StatusReport, error)
}

// Options wires the server to the rest of the bot
type Options struct {
	Fleet      FleetStatus
	Database   DatabaseStatus
	Premium    PremiumService
	Hub        *Hub
	Metrics    http.Handler
	AdminKey   string
	WebhookURL string
	// RateLimit is the number of requests allowed per IP per minute
	RateLimit int
}

// Server represents the web server
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	opts       Options
	mu         sync.Mutex
}

var (
	server *Server
)

// Init initializes the global web server
func Init(opts Options) *Server {
	server = NewServer(opts)
	return server
}

// Get returns the global web server
func Get() *Server {
	return server
}

// NewServer creates a new web server with every route registered
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	if opts.RateLimit <= 0 {
		opts.RateLimit = 100
	}
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		opts:   opts,
	}

	// Apply middlewares
	s.engine.Use(s.logsMiddleware())
	s.engine.Use(s.rateLimitMiddleware(RateLimitConfig{
		WindowMs:    60 * time.Second,
		MaxRequests: opts.RateLimit,
	}))

	// Set up error handlers
	s.setupErrorHandlers()

	SetupRoutes(s)

	return s
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Hub returns the websocket hub fed with lifecycle events
func (s *Server) Hub() *Hub {
	return s.opts.Hub
}

// logsMiddleware logs every request and mirrors it to the logs webhook
func (s *Server) logsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug(fmt.Sprintf("[LOG] %s %s -> %d (%s) | %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.ClientIP()), "WebServer")

		if s.opts.WebhookURL != "" && c.Request.URL.Path != "/metrics" {
			go s.sendLogToWebhook(c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Writer.Status())
		}
	}
}

// sendLogToWebhook sends a log message to the Discord webhook
func (s *Server) sendLogToWebhook(method, path, ip string, status int) {
	color := 0x00AE86 // Green
	if status >= http.StatusBadRequest {
		color = 0xFFA500 // Orange
	}

	embed := map[string]interface{}{
		"title":       fmt.Sprintf("💫 | Nueva solicitud al servidor web de tipo %s", method),
		"description": fmt.Sprintf("> **Ruta:** `%s`\n> **IP:** `%s`\n> **Estado:** `%d`", path, ip, status),
		"color":       color,
		"timestamp":   time.Now().Format(time.RFC3339),
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.opts.WebhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	WindowMs    time.Duration
	MaxRequests int
}

// rateLimitMiddleware implements a simple fixed window rate limiter per IP
func (s *Server) rateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	type clientInfo struct {
		count   int
		resetAt time.Time
	}
	var mu sync.Mutex
	clients := make(map[string]*clientInfo)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		info, exists := clients[ip]
		if !exists || now.After(info.resetAt) {
			info = &clientInfo{resetAt: now.Add(config.WindowMs)}
			clients[ip] = info
		}
		info.count++
		count := info.count
		mu.Unlock()

		if count > config.MaxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Demasiadas solicitudes, por favor intente de nuevo más tarde.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// setupErrorHandlers sets up error handling routes
func (s *Server) setupErrorHandlers() {
	// 404 handler
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "La ruta solicitada no existe.",
			"status":  404,
		})
	})

	// 405 handler
	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "El método HTTP no está permitido para esta ruta.",
			"status":  405,
		})
	})
}

// Start starts the web server and blocks until it stops
func (s *Server) Start(port string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info(fmt.Sprintf("🚀 Servidor escuchando en http://localhost:%s", port), "WebServer")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(port string) {
	go func() {
		if err := s.Start(port); err != nil {
			logger.Error(fmt.Sprintf("Error iniciando el servidor web: %v", err), "WebServer")
		}
	}()
}

// Shutdown closes websocket clients and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.opts.Hub.Close()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Router helper methods

// GET registers a GET route
func (s *Server) GET(path string, handlers ...gin.HandlerFunc) {
	s.engine.GET(path, handlers...)
}

// Group creates a new router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}
