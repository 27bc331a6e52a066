// Package router serves the watcher's local status API: health, metrics
// and read-only views of the wallet snapshot.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/middleware"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/realtime"
	"enclave-sdk/internal/store"
)

// ConnectionStatus is the part of the realtime client the router reads.
type ConnectionStatus interface {
	State() realtime.State
	Subscriptions() []realtime.Subscription
}

// Deps are the components the routes read from.
type Deps struct {
	Store    *store.Store
	Realtime ConnectionStatus
	// Gatherer backs /metrics. nil leaves the route out.
	Gatherer prometheus.Gatherer
	// AllowedIPs may reach /api besides localhost.
	AllowedIPs []string
	Logger     logrus.FieldLogger
}

// requestLogger logs each request at debug level.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		}).Debug("[Router] request")
	}
}

// SetupRouter builds the status API.
func SetupRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "router")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// ============ Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// ============ Health Check ============
	// 503 once the realtime client has given up reconnecting.
	r.GET("/health", func(c *gin.Context) {
		state := d.Realtime.State()
		code := http.StatusOK
		if state == realtime.StateError {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":   state.String(),
			"service":  "enclave-watch",
			"version":  d.Store.Snapshot().Version(),
			"realtime": state.String(),
		})
	})

	// ============ Prometheus Metrics ============
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// ============ Snapshot (localhost only) ============
	api := r.Group("/api", middleware.NewLocalhostOnly(logger, d.AllowedIPs).Restrict())
	{
		api.GET("/snapshot", func(c *gin.Context) {
			snap := d.Store.Snapshot()
			c.JSON(http.StatusOK, gin.H{
				"version":       snap.Version(),
				"counts":        snap.Counts(),
				"realtime":      d.Realtime.State().String(),
				"subscriptions": d.Realtime.Subscriptions(),
			})
		})
		api.GET("/checkbooks", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": d.Store.Snapshot().Checkbooks()})
		})
		api.GET("/checkbooks/:id", func(c *gin.Context) {
			snap := d.Store.Snapshot()
			cb, ok := snap.Checkbook(c.Param("id"))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "checkbook not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": cb, "allocations": snap.AllocationsByCheckbook(cb.ID)})
		})
		api.GET("/allocations", func(c *gin.Context) {
			snap := d.Store.Snapshot()
			if s := c.Query("status"); s != "" {
				status, ok := models.ParseAllocationStatus(s)
				if !ok {
					c.JSON(http.StatusBadRequest, gin.H{"error": "unknown allocation status"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"data": snap.AllocationsByStatus(status)})
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": snap.Allocations()})
		})
		api.GET("/withdraws", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": d.Store.Snapshot().Withdrawals()})
		})
		api.GET("/prices", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": d.Store.Snapshot().Prices()})
		})
	}

	return r
}
