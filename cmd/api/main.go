package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/app"
	"github.com/hamed0406/dnsoptimizer/internal/config"
	"github.com/hamed0406/dnsoptimizer/internal/httpapi"
	apimw "github.com/hamed0406/dnsoptimizer/internal/httpapi/middleware"
	"github.com/hamed0406/dnsoptimizer/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	opt, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("startup_failed", zap.Error(err))
		log.Fatal(err)
	}
	defer opt.Close()

	api := httpapi.NewServer(logger, opt, app.ResolvConfPath(cfg))
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("api_listen_failed", zap.Error(err))
		log.Fatal(err)
	}
	logger.Info("api_stopped")
}
