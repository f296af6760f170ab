// Package httpapi exposes the pipeline trigger over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
)

const defaultTriggerPath = "/ingest"

// RunFunc executes one pipeline batch.
type RunFunc func(ctx context.Context) (domain.RunResult, error)

// Options configures the router.
type Options struct {
	Server   config.ServerConfig
	Run      RunFunc
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewRouter builds the gin engine with the trigger, health and metrics routes.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger))

	corsConfig := cors.DefaultConfig()
	if len(opts.Server.AllowOrigin) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.Server.AllowOrigin
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	path := opts.Server.TriggerPath
	if path == "" {
		path = defaultTriggerPath
	}
	r.POST(path, triggerHandler(opts.Run, opts.Logger))
	// Preflights are answered by the cors middleware; bare OPTIONS lands here.
	r.OPTIONS(path, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}

func triggerHandler(run RunFunc, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if run == nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "pipeline is not configured"})
			return
		}

		// A client disconnect must not abandon a half-processed batch.
		result, err := run(context.WithoutCancel(c.Request.Context()))
		if err != nil {
			if logger != nil {
				logger.Error("triggered run failed", "run_id", result.RunID, "error", err)
			}
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if logger != nil {
			logger.Info("http server listening", "addr", addr)
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
