package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"esgrec/internal/cli"
	"esgrec/internal/export"
	applog "esgrec/internal/log"
	"esgrec/internal/matrix"
)

func main() {
	companyID := flag.Int64("company", 0, "company ID (required)")
	year := flag.Int("year", 0, "record year (required)")
	out := flag.String("out", "", "output file, defaults to matrix_<company>_<year>.xlsx")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentExport)
	cfg := cli.LoadAndValidateConfig(logger)

	if *companyID <= 0 || *year <= 0 {
		fmt.Fprintln(os.Stderr, "usage: export-matrix -company <id> -year <year> [-out file.xlsx]")
		os.Exit(2)
	}

	store := cli.OpenStore(logger, cfg)
	defer func() {
		if store.Cleanup != nil {
			_ = store.Cleanup()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	loader := matrix.NewLoader(store.Store, store.Store)
	rows, err := loader.Load(ctx, *companyID, *year)
	if err != nil {
		logger.Error("Failed to load matrix", "company_id", *companyID, "year", *year, "error", err)
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("matrix_%d_%d.xlsx", *companyID, *year)
	}

	f, err := os.Create(path)
	if err != nil {
		logger.Error("Failed to create output file", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := export.Write(f, *companyID, *year, rows); err != nil {
		logger.Error("Failed to write workbook", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("Matrix exported", "path", path, "rows", len(rows))
}
