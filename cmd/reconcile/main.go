// Command reconcile imports one payment file from the command line and prints
// the result as JSON.
//
//	reconcile -file payments.xlsx -year 2024-2025 [-branch north] [-dry-run]
//
// Database and import settings come from the environment (and .env) like the
// server; flags override them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/feerecon/internal/config"
	"github.com/JonMunkholm/feerecon/internal/core"
	"github.com/JonMunkholm/feerecon/internal/logging"
	"github.com/JonMunkholm/feerecon/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		path    = flag.String("file", "", "payment file to import (.csv, .xlsx, .xls)")
		branch  = flag.String("branch", "", "limit matching to one branch")
		year    = flag.String("year", "", "academic year for rows without one")
		dryRun  = flag.Bool("dry-run", false, "classify rows without writing to the ledger")
		aliases = flag.String("aliases", "", "YAML alias override file (default: IMPORT_ALIASES_FILE)")
		envFile = flag.String("env", ".env", "dotenv file to load if present")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "reconcile: -file is required")
		flag.Usage()
		return 2
	}

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "reconcile: %s: %v\n", *envFile, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		return 2
	}

	// Logs go to stderr so stdout carries only the result.
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	data, err := os.ReadFile(*path)
	if err != nil {
		logger.Error("read file", "error", err)
		return 1
	}

	aliasPath := cfg.Import.AliasesFile
	if *aliases != "" {
		aliasPath = *aliases
	}
	table, err := core.LoadAliases(aliasPath)
	if err != nil {
		logger.Error("load aliases", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Import.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("connect database", "error", err)
		return 1
	}
	defer pool.Close()

	if cfg.Database.EnsureSchema {
		if err := store.EnsureSchema(ctx, pool); err != nil {
			logger.Error("ensure schema", "error", err)
			return 1
		}
	}

	db := store.NewPostgres(pool)
	p := core.NewPipeline(db, db)
	p.Normalizer = core.NewNormalizer(table)
	p.BatchSize = cfg.Import.BatchSize
	p.Logger = logger

	opts := core.ImportOptions{
		ValidateOnly: *dryRun,
		BranchID:     *branch,
		AcademicYear: *year,
	}
	if opts.AcademicYear == "" {
		opts.AcademicYear = cfg.Import.DefaultAcademicYear
	}

	file := core.FileInput{Name: filepath.Base(*path), Data: data}
	result, runErr := p.Run(ctx, file, opts, func(pr core.Progress) {
		logger.Debug("progress", "percent", pr.Percent, "phase", pr.Phase)
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("encode result", "error", err)
		return 1
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, core.FormatUserError(runErr))
		return 1
	}
	if result.Status == core.ResultError {
		return 3
	}
	return 0
}
