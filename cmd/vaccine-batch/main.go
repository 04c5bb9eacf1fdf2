package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/vaccine-tracker/internal/app"
	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/records"
	"github.com/joseph-ayodele/vaccine-tracker/internal/export"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func parseDate(flagName, s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		printError("Error: invalid --%s date format, use YYYY-MM-DD: %v\n", flagName, err)
		os.Exit(1)
	}
	return &t
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use an in-memory SQLite database")
		dir     = flag.String("dir", "", "directory of certificates to process (required)")
		out     = flag.String("out", "", "output XLSX file path (defaults to vaccines.xlsx next to --dir)")
		subject = flag.String("subject", "Local Batch", "subject name the records are filed under")
		birth   = flag.String("birth", "", "subject birth date YYYY-MM-DD (enables recommendations)")
		age     = flag.Int("age", -1, "subject age in years; overrides --birth")
		fromStr = flag.String("from", "", "from date YYYY-MM-DD")
		toStr   = flag.String("to", "", "to date YYYY-MM-DD")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "vaccines.xlsx")
	}
	from, to := parseDate("from", *fromStr), parseDate("to", *toStr)
	birthDate := parseDate("birth", *birth)

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = ":memory:"
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	sub, err := a.Subjects.GetOrCreateByName(ctx, *subject)
	if err != nil {
		logger.Error("failed to get or create subject", "error", err)
		os.Exit(1)
	}
	logger.Info("using subject", "id", sub.ID, "name", sub.Name)

	results, stats, err := a.Ingestor.IngestDirectory(ctx, sub.ID, *dir, true)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("certificate not stored", "path", r.SourcePath, "rejected", r.Rejected, "error", r.Err)
		}
	}

	req := export.Request{OwnerID: sub.ID, From: from, To: to, Now: time.Now().UTC()}
	switch {
	case *age >= 0:
		req.Age = age
	case birthDate != nil:
		years := records.AgeAt(*birthDate, req.Now)
		req.Age = &years
	case sub.BirthDate == nil && cfg.Schedule.DefaultSubjectAge < 0:
		logger.Warn("no age known, skipping recommendations")
		req.SkipRecommendations = true
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsx, err := a.Exporter.ExportVaccinesXLSX(ctx, req)
	if err != nil {
		logger.Error("failed to export vaccines", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Certificates found: %d\n", stats.Matched)
	fmt.Printf("- Stored: %d\n", stats.Succeeded)
	fmt.Printf("- Missing name/date: %d\n", stats.Rejected)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Output: %s\n", *out)
}
