// Package cli provides common CLI initialization utilities shared by
// cmd/ausgaben and cmd/ausgaben-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ausgaben/internal/config"
	"ausgaben/internal/log"
)

// SetupLogger builds the process logger and installs it as the slog default.
func SetupLogger(level, component string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is fine; production sets real environment variables.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig loads configuration from path (or AUSGABEN_CONFIG
// when path is empty), applies overrides and validates the result.
func LoadAndValidateConfig(path string, overrides ...func(*config.Config)) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("AUSGABEN_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadAndValidateConfig for long-running binaries: it
// logs the problem and exits.
func MustLoadConfig(logger *log.Logger, path string) *config.Config {
	cfg, err := LoadAndValidateConfig(path)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or a call
// to stop. Cleanup then runs with a context bounded by timeout, and done is
// closed once it has returned.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) (context.Context, context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()
		runCleanup(logger, timeout, cleanup)
	}()

	return ctx, cancel, finished
}

func runCleanup(logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) {
	if cleanup == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	errCh := make(chan error, 1)
	go func() { errCh <- cleanup(shutdownCtx) }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Shutdown cleanup failed", log.FieldOperation, log.OpShutdown, log.FieldError, err)
			return
		}
		logger.Info("Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached", "timeout", timeout.String())
	}
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal prints err to stderr and exits with status 1.
func Fatal(err error) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("error: ")+err.Error())
	os.Exit(1)
}
