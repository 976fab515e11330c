package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ausgaben/internal/cli"
	apphttp "ausgaben/internal/http"
	"ausgaben/internal/log"
)

var flagRateLimit int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagRateLimit, "rate-limit", 60, "POST requests per minute per client")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	s, err := openServerSession(cmd.Context())
	if err != nil {
		return err
	}
	logger := s.logger.WithComponent(log.ComponentApp)

	srv := apphttp.NewServer(":"+s.cfg.Port, apphttp.Deps{
		Expenses:          s.backend.Expenses,
		Categories:        s.backend.Categories,
		Budgets:           s.backend.Budgets,
		Logger:            s.logger,
		Location:          s.loc,
		RequestsPerMinute: flagRateLimit,
		Ready:             s.backend.Ready,
	})

	ctx, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), s.backend.Cleanup())
	})
	defer stop()

	logger.Info("Starting HTTP server",
		"addr", srv.Addr,
		"backend", s.cfg.DataBackend,
		"timezone", s.loc.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-done
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
