package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/mdchunk/internal/api"
	"github.com/dgallion1/mdchunk/internal/chunker"
	"github.com/dgallion1/mdchunk/internal/config"
	"github.com/dgallion1/mdchunk/internal/corrector"
	"github.com/dgallion1/mdchunk/internal/hierarchy"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := config.LoadEnvFile(".env"); err != nil {
		log.Error("invalid .env file", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Heading correction transport, shared by every request.
	pool := corrector.NewPool(corrector.Settings{
		RatePerSec:      cfg.LLMRatePerSec,
		Burst:           cfg.LLMBurst,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerCooldown: cfg.BreakerCooldown,
		HTTPTimeout:     cfg.LLMTimeout,
	}, log)

	engine := chunker.New(func(apiBase, apiKey, model string) hierarchy.Corrector {
		return pool.Client(apiBase, apiKey, model)
	}, log)

	srv := api.NewServer(engine, pool.Stats(), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		pool.Close()
	}()

	log.Info("starting mdchunk",
		"port", cfg.Port,
		"auth", cfg.APIKey != "",
		"llm_default_model", cfg.LLMDefaultModel,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
