package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luckyenvelope/internal/config"
	"luckyenvelope/internal/handlers"
	"luckyenvelope/internal/metrics"
	"luckyenvelope/internal/services"
	"luckyenvelope/internal/store"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	defer cfg.InitLogger("luckyenvelope", os.Stdout).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the record store
	st, closeStore, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	if inviter, ok := st.(store.Inviter); ok {
		for _, code := range cfg.InviteCodes {
			if err := inviter.Invite(ctx, code); err != nil {
				logger.Fatalf("Failed to invite %s: %v", code, err)
			}
		}
	}

	// 3. Initialize the Envelope Service
	m := metrics.New(prometheus.DefaultRegisterer)
	envelopeService := services.NewEnvelopeService(st, cfg.Prizes, services.Options{
		CacheTTL: cfg.PrizeCacheTTL,
		Metrics:  m,
	})
	defer envelopeService.Close()
	for _, p := range cfg.Prizes {
		logger.Infof("Prize %s (%s): limit %d", p.ID, p.Name, p.Limit)
	}

	// 4. Initialize the HTTP Handler and router
	httpHandler := handlers.NewHTTPHandler(envelopeService, promhttp.Handler())
	r := gin.Default()
	r.Use(handlers.RequestIDMiddleware())
	httpHandler.RegisterRoutes(r)

	// 5. Serve the front-end for anything else
	if cfg.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.StaticDir))))
	}

	// 6. Run the server until interrupted
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("Server starting on http://localhost:%s (store: %s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown: %v", err)
	}
	logger.Info("Server stopped")
}
