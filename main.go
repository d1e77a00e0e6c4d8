package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Melonai/ka/internal/api"
	"github.com/Melonai/ka/internal/config"
	"github.com/Melonai/ka/internal/logging"
	"github.com/Melonai/ka/internal/middleware"
	"github.com/Melonai/ka/internal/parcel"
	"github.com/Melonai/ka/internal/watch"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("daemon failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	p, err := parcel.Open(cfg, logger, true)
	if err != nil {
		return err
	}
	defer p.Close()

	handler := api.NewHandler(p.Repository, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchDone := make(chan error, 1)
	if cfg.Watch.Enabled {
		w, err := watch.New(p.Root, p.Repository.Locations().MetaDir, cfg.Watch.Debounce, handler.AutoUpdate, logger.Logger)
		if err != nil {
			return err
		}
		go func() { watchDone <- w.Run(ctx) }()
	} else {
		watchDone <- nil
	}

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: middleware.Chain(
			handler.Routes(),
			middleware.RequestID,
			middleware.Logger(logger),
			middleware.Recover(logger),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("address", server.Addr),
			zap.String("root", p.Root),
			zap.Bool("watch", cfg.Watch.Enabled))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stop()
		<-watchDone
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-watchDone
}
