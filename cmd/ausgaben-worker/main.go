// Command ausgaben-worker exports expenses to Google Sheets. It consumes
// sync announcements from AMQP and sweeps pending expenses on a timer.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ausgaben/internal/amqp"
	"ausgaben/internal/backend"
	"ausgaben/internal/cli"
	"ausgaben/internal/config"
	"ausgaben/internal/log"
	"ausgaben/internal/ports"
	"ausgaben/internal/services"
	gsheet "ausgaben/internal/sheets/google"
	memsheet "ausgaben/internal/sheets/memory"
	"ausgaben/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig("")
	if err != nil {
		cli.Fatal(err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker, os.Stdout)
	logger.Info("Starting ausgaben-worker", "backend", cfg.DataBackend)

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	startup, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// The worker only reads and marks expenses; it never announces them.
	bcfg.AMQPURL = ""
	b, err := backend.NewFactory(logger).CreateBackend(startup, bcfg)
	if err != nil {
		return err
	}

	exporter, err := newExporter(startup, cfg, logger)
	if err != nil {
		_ = b.Cleanup()
		return err
	}
	syncWorker := worker.NewSyncWorker(b.Store, exporter, cfg.SyncBatchSize, worker.WithBudgetAlerts(b.Budgets))

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on the pending sweep", log.FieldError, err)
			consumer = nil
		}
	} else {
		logger.Info("AMQP disabled - relying on the pending sweep")
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})

	ctx, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		errs := []error{processor.Stop(ctx)}
		if consumer != nil {
			errs = append(errs, consumer.Close())
		}
		errs = append(errs, b.Cleanup())
		return errors.Join(errs...)
	})
	defer stop()

	logger.Info("Performing startup sync check", log.FieldOperation, log.OpStartup)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})
	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeExpenseSync(gctx, syncWorker.HandleSyncMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	stop()
	<-done
	return err
}

func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (ports.ExpenseExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Warn("Google Sheets not configured - exporting to memory only")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
