package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/backend"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/importer"
	"github.com/claude/liftlog/internal/tracker"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	templatesPath := flag.String("path", "", "YAML template file or directory of them (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing templates")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *templatesPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import [-config config.yaml] -path templates/ [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*templatesPath); err != nil {
		log.Error("template path does not exist", "path", *templatesPath)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no templates will be written")
	}

	store, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	tr := tracker.New(store, tracker.Options{
		Logger:              log,
		TickInterval:        -1,
		DefaultSetRest:      cfg.Timers.DefaultSetRest,
		DefaultExerciseRest: cfg.Timers.DefaultExerciseRest,
	})
	tr.Load(ctx)

	imp := importer.New(tr, log, *dryRun)
	stats, err := imp.Import(ctx, *templatesPath)

	// Close drains pending writes before the store goes away.
	tr.Close()
	if cerr := store.Close(); cerr != nil {
		log.Error("closing store", "error", cerr)
	}

	printStats(log, stats)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"templates_imported", stats.TemplatesImported,
		"templates_duplicated", stats.TemplatesDuplicated,
		"templates_invalid", stats.TemplatesInvalid,
	)
}
