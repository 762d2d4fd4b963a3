// Command normalize-phones rewrites stored mobile numbers into the
// local 10-digit convention. Ingestion accepts any non-empty key, so
// files uploaded with country codes or stray punctuation can leave the
// table with mixed formats; this one-shot tool converges them.
//
// Run with -dry-run to see what would change without writing.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"pledgeboard/internal/config"
	"pledgeboard/internal/database"
	"pledgeboard/internal/logging"
	"pledgeboard/internal/pledge"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report changes without writing them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database.URL, database.PoolOptions{})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := pledge.NewPostgresStore(db)
	records, err := store.ListAll(ctx)
	if err != nil {
		slog.Error("failed to list pledge records", "error", err)
		os.Exit(1)
	}

	var changed, skipped, failed int
	for _, rec := range records {
		formatted := pledge.FormatMobileNumber(rec.MobileNumber)
		if formatted == rec.MobileNumber {
			continue
		}

		if *dryRun {
			slog.Info("would update", "from", rec.MobileNumber, "to", formatted)
			changed++
			continue
		}

		// A rename can collide with a record that already holds the
		// formatted number; keep the original rather than merging.
		if _, err := store.GetByMobile(ctx, formatted); err == nil {
			slog.Warn("skipping, formatted number already exists",
				"from", rec.MobileNumber, "to", formatted)
			skipped++
			continue
		}

		if err := store.UpdateMobileNumber(ctx, rec.MobileNumber, formatted); err != nil {
			slog.Error("failed to update mobile number",
				"from", rec.MobileNumber, "to", formatted, "error", err)
			failed++
			continue
		}
		slog.Info("updated", "from", rec.MobileNumber, "to", formatted)
		changed++
	}

	slog.Info("done",
		"total", len(records),
		"changed", changed,
		"skipped", skipped,
		"failed", failed,
		"dry_run", *dryRun,
	)
	if failed > 0 {
		os.Exit(1)
	}
}
