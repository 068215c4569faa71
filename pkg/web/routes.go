package web

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/database"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const requestTimeout = 5 * time.Second

// SetupRoutes sets up the health, API, metrics and websocket routes. Code
// lookups and the event feed require the admin key.
func SetupRoutes(s *Server) {
	s.GET("/", s.healthHandler)

	api := s.Group("/api")
	{
		api.GET("/status", s.statusHandler)
		api.GET("/premium/server/:guildId", s.premiumServerHandler)
		api.GET("/premium/servers", s.premiumServersHandler)
		api.GET("/codes/:code", s.requireAdminKey(), s.codeHandler)
	}

	if s.opts.Metrics != nil {
		s.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}
	s.GET("/ws/events", s.requireAdminKey(), s.opts.Hub.Handle)
}

func (s *Server) fleetCounts() (ready, total int) {
	if s.opts.Fleet == nil {
		return 0, 0
	}
	return s.opts.Fleet.ReadyCount(), s.opts.Fleet.Total()
}

// healthHandler reports how many bots are ready
func (s *Server) healthHandler(c *gin.Context) {
	ready, total := s.fleetCounts()
	c.JSON(http.StatusOK, gin.H{
		"status":     "running",
		"ready_bots": ready,
		"total_bots": total,
		"message":    fmt.Sprintf("Discord Bot Service is running. %d/%d bots are ready.", ready, total),
	})
}

// statusHandler returns the bot fleet and database status
func (s *Server) statusHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	dbStatus, dbOnline := "🔴 | Desconectado", false
	if s.opts.Database != nil {
		dbStatus, dbOnline = s.opts.Database.GetStatus(ctx)
	}
	ready, total := s.fleetCounts()

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bots": gin.H{
			"ready": ready,
			"total": total,
		},
		"websocketClients": s.opts.Hub.ConnectionCount(),
	})
}

// premiumServerHandler returns the derived subscription state of a guild
func (s *Server) premiumServerHandler(c *gin.Context) {
	if s.opts.Premium == nil {
		serviceUnavailable(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	report, err := s.opts.Premium.Status(ctx, c.Param("guildId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, reportBody(report))
}

// premiumServersHandler lists the guilds with time left on their subscription
func (s *Server) premiumServersHandler(c *gin.Context) {
	if s.opts.Premium == nil {
		serviceUnavailable(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	reports, err := s.opts.Premium.ActiveSubscriptions(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(reports),
		"servers": lo.Map(reports, func(r *subscription.StatusReport, _ int) gin.H { return reportBody(r) }),
	})
}

// reportBody renders a status report without redeemer details
func reportBody(report *subscription.StatusReport) gin.H {
	body := gin.H{
		"guildId": report.Subscription.GuildID,
		"state":   report.State.String(),
		"label":   report.State.Label(),
		"active":  report.State == subscription.StateActive || report.State == subscription.StateExpiringSoon,
	}
	if report.Subscription.VIPRoleID != "" {
		body["vipRoleId"] = report.Subscription.VIPRoleID
	}
	if report.Subscription.SubscriptionEndDate != nil {
		body["subscriptionEndDate"] = report.Subscription.SubscriptionEndDate.UTC()
		body["remainingSeconds"] = int64(report.Remaining.Seconds())
	}
	return body
}

// codeHandler looks up a redemption code
func (s *Server) codeHandler(c *gin.Context) {
	if s.opts.Premium == nil {
		serviceUnavailable(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	code, err := s.opts.Premium.LookupCode(ctx, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// requireAdminKey rejects requests without the X-Admin-Key header. The
// route is closed when no key is configured.
func (s *Server) requireAdminKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Admin-Key")
		if s.opts.AdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.AdminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Clave de administrador inválida.",
				"status":  401,
			})
			return
		}
		c.Next()
	}
}

func serviceUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Service Unavailable",
		"message": "El servicio premium no está disponible en este momento.",
		"status":  503,
	})
}

// writeError maps service errors to HTTP responses
func writeError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "Error interno del servidor."
	switch {
	case errors.Is(err, subscription.ErrCodeNotFound):
		status, message = http.StatusNotFound, "Código no encontrado."
	case errors.Is(err, subscription.ErrGuildRequired):
		status, message = http.StatusBadRequest, "Falta el ID del servidor."
	case errors.Is(err, database.ErrNotConnected):
		status, message = http.StatusServiceUnavailable, "La base de datos no está disponible."
	}
	c.JSON(status, gin.H{
		"error":   http.StatusText(status),
		"message": message,
		"status":  status,
	})
}
