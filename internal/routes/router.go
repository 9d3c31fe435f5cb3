package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stollenaar/numbercruncher/internal/util"
)

// NewRouter builds the health endpoints. ready reports whether the gateway
// session is up and the commands are synced.
func NewRouter(cfg *util.Config, ready func() bool) *gin.Engine {
	if !cfg.DEBUG {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.SetTrustedProxies(nil)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/status", func(c *gin.Context) {
		status := http.StatusOK
		if !ready() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":        ready(),
			"command":      "analyze",
			"orderChannel": cfg.ORDER_CHANNEL_ID.String(),
		})
	})
	return r
}

// CreateRouter serves the health endpoints on ROUTER_ADDR until ctx is done.
func CreateRouter(ctx context.Context, cfg *util.Config, ready func() bool) error {
	srv := &http.Server{
		Addr:    cfg.ROUTER_ADDR,
		Handler: NewRouter(cfg, ready),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down router", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
