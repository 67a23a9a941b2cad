package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"apartment/internal/amqp"
	"apartment/internal/cli"
	"apartment/internal/log"
	gsheet "apartment/internal/sheets/google"
	"apartment/internal/storage"
	"apartment/internal/worker"

	"golang.org/x/sync/errgroup"
)

const healthInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting apartment-worker")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleLedgerSheetName, loc)
	if err != nil {
		return fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	if err := sheetsClient.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("prepare ledger sheet: %w", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleLedgerSheetName)

	// Reconcile needs the ledger file; the memory backend has nothing to replay.
	var source worker.LedgerSource
	if cfg.DataBackend == "sqlite" {
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return fmt.Errorf("open ledger database: %w", err)
		}
		defer repo.Close()
		source = repo
	}

	mirror := worker.NewMirrorWorker(sheetsClient, source, logger)
	if err := mirror.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Startup reconcile failed", log.FieldError, err.Error())
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeLedgerEvents(gctx, mirror.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if !client.Healthy() {
					logger.Warn("AMQP connection is down, consumer is reconnecting")
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("consume ledger events: %w", err)
	}
	logger.Info("Worker shutdown complete")
	return nil
}
