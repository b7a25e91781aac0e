package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/archive"
	"rollcall/internal/config"
	"rollcall/internal/httpapi"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/metrics"
	"rollcall/internal/queue"
	"rollcall/internal/session"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var (
		store   session.Store
		healthy func(ctx context.Context) bool
		q       queue.Queue
	)

	if cfg.SessionBackend == "memory" {
		store = session.NewMemoryStore()
		q = queue.NewInMemory(64)
	} else {
		rs := session.NewRedisStore(cfg.RedisAddr)
		store = rs
		healthy = rs.Healthy
		if cfg.QueueBackend == "memory" {
			q = queue.NewInMemory(64)
		} else {
			q = queue.NewRedisQueue(rs.Client(), "rollcall:present")
		}
	}

	// Archive is optional; the core endpoints run without it.
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		db, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			log.Printf("warning: archive db not reachable: %v", err)
		} else {
			defer db.Close()
			repo = archive.NewRepository(db)
		}
	}

	mgr := session.NewManager(store, cfg.RotationInterval)
	mgr.OnRotate(func(code string, at time.Time) {
		metrics.Rotations.Inc()
		log.Printf("code rotated at %s", at.UTC().Format(time.RFC3339))
	})

	ctx := context.Background()
	mgr.OnPresent(func(identity, code string, at time.Time) {
		body, err := json.Marshal(archive.PresentMessage{StudentID: identity, Code: code, At: at})
		if err != nil {
			return
		}
		if err := q.Publish(ctx, queue.Message{Type: archive.MessagePresent, Body: body}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpapi.New(mgr, repo, cfg, healthy).Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
