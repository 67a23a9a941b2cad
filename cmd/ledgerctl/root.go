package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"apartment/internal/cli"
	"apartment/internal/config"
	"apartment/internal/log"
	"apartment/internal/services"
	"apartment/internal/storage"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	dbPath   string
	timezone string
	logLevel string
}

func newRootCmd() *cobra.Command {
	// Flag defaults come from the same environment the server reads.
	_ = cli.LoadEnvFile()
	cfg := config.Load()

	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect apartment cash registers",
		Long:          "ledgerctl reads the apartment ledger database and prints register summaries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "path to the SQLite ledger database")
	cmd.PersistentFlags().StringVar(&opts.timezone, "tz", cfg.LedgerTimezone, "time zone for calendar days")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(summaryCmd(opts))
	cmd.AddCommand(monthlyCmd(opts))
	cmd.AddCommand(registersCmd(opts))
	return cmd
}

// ledgerSession is an open database plus the read services built on it.
type ledgerSession struct {
	repo      *storage.SQLiteRepository
	ledger    *services.LedgerService
	registers *services.RegisterService
	loc       *time.Location
}

func (o *rootOptions) open(cmd *cobra.Command) (*ledgerSession, error) {
	if o.dbPath == "" {
		return nil, fmt.Errorf("--db is required")
	}
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid --tz %q: %w", o.timezone, err)
	}
	// The SQLite driver creates missing files, so a mistyped path would
	// silently read an empty ledger.
	if _, err := os.Stat(o.dbPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ledger database %q not found", o.dbPath)
		}
		return nil, fmt.Errorf("stat ledger database: %w", err)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(o.logLevel),
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	slog.SetDefault(logger.Logger)

	repo, err := storage.NewSQLiteRepository(o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	return &ledgerSession{
		repo:      repo,
		ledger:    services.NewLedgerService(repo, services.WithLocation(loc), services.WithLogger(logger)),
		registers: services.NewRegisterService(repo, logger),
		loc:       loc,
	}, nil
}

func (s *ledgerSession) Close() {
	if err := s.repo.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
