package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/warelink/stocksync_backend/config"
	"github.com/warelink/stocksync_backend/middlewares"
	"github.com/warelink/stocksync_backend/models"
	"github.com/warelink/stocksync_backend/stocksync"
	"github.com/warelink/stocksync_backend/utils"
)

const defaultPort = "8080"

func main() {
	_ = godotenv.Load()

	port := os.Getenv("STOCK_SYNC_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable(db)
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

// registerRoutes resolves collaborators lazily so the server can start
// listening before the database connection is up.
func registerRoutes(r *gin.Engine) {
	svc := func() *stocksync.Service {
		return stocksync.NewService(config.GetDB(), config.GetLogger(), config.GetRedisLock())
	}

	// Provider endpoints pulled by partner sites.
	provider := r.Group("/api/method", lazyHandler(func() gin.HandlerFunc {
		return middlewares.TokenAuthMiddleware(config.GetDB())
	}))
	provider.GET("/"+stocksync.ProviderMethodStock, lazyHandler(func() gin.HandlerFunc {
		return stocksync.GetStockForExternalHandler(svc())
	}))
	provider.GET("/"+stocksync.ProviderMethodWhoami, stocksync.WhoamiHandler())

	r.POST("/api/auth/login", lazyHandler(func() gin.HandlerFunc {
		return stocksync.LoginHandler(config.GetDB())
	}))

	// Operator API.
	api := r.Group("/api", middlewares.JwtAuthMiddleware())
	api.GET("/connections", lazyHandler(func() gin.HandlerFunc { return stocksync.ListConnectionsHandler(config.GetDB()) }))
	api.POST("/connections", lazyHandler(func() gin.HandlerFunc { return stocksync.CreateConnectionHandler(config.GetDB()) }))
	api.GET("/connections/:id", lazyHandler(func() gin.HandlerFunc { return stocksync.GetConnectionHandler(config.GetDB()) }))
	api.PUT("/connections/:id", lazyHandler(func() gin.HandlerFunc { return stocksync.UpdateConnectionHandler(config.GetDB()) }))
	api.DELETE("/connections/:id", lazyHandler(func() gin.HandlerFunc { return stocksync.DeleteConnectionHandler(config.GetDB()) }))
	api.POST("/connections/:id/test", lazyHandler(func() gin.HandlerFunc { return stocksync.TestConnectionHandler(svc()) }))
	api.POST("/connections/:id/sync", lazyHandler(func() gin.HandlerFunc { return stocksync.SyncSiteHandler(svc()) }))
	api.POST("/sync/all", lazyHandler(func() gin.HandlerFunc { return stocksync.SyncAllHandler(svc()) }))
	api.GET("/sync-runs", lazyHandler(func() gin.HandlerFunc { return stocksync.ListSyncRunsHandler(config.GetDB()) }))
	api.GET("/sync-runs/:id", lazyHandler(func() gin.HandlerFunc { return stocksync.GetSyncRunHandler(config.GetDB()) }))
	api.GET("/reports/external-stock", lazyHandler(func() gin.HandlerFunc { return stocksync.ExternalStockReportHandler(config.GetDB()) }))
	api.GET("/reports/external-stock/export", lazyHandler(func() gin.HandlerFunc { return stocksync.ExportExternalStockReportHandler(config.GetDB()) }))
}

// lazyHandler builds the real handler per request, after the readiness
// middleware has guaranteed the database handle exists.
func lazyHandler(build func() gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		build()(c)
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
