// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/internal/output"
	"github.com/sguzman/zimrs-go/internal/ui"
	"github.com/sguzman/zimrs-go/pkg/ingestion"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

// runConvert executes the 'convert' command: the primary ZIM-to-SQLite
// pipeline run.
func runConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	var (
		archivePath       = fs.String("archive", "", "Path to the ZIM archive to convert (required)")
		configPath        = fs.String("config", "", "Path to a TOML configuration file")
		maxEntries        = fs.Int("max-entries", 0, "Stop after selecting this many entries (0 = unlimited)")
		startIndex        = fs.Int("start-index", -1, "Override the archive directory index to start dispatch from")
		overwrite         = fs.Bool("overwrite", false, "Allow writing into an existing, non-empty database")
		noResume          = fs.Bool("no-resume", false, "Ignore any saved checkpoint and start from the beginning")
		extractionThreads = fs.Int("extraction-threads", 0, "Override workers.extraction_threads (0 = use config)")
		logLevel          = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		metricsAddr       = fs.String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090")
		jsonOut           = fs.Bool("json", false, "Emit machine-readable JSON output")
		quiet             = fs.Bool("quiet", false, "Suppress progress bars and non-essential output")
		noColor           = fs.Bool("no-color", false, "Disable colored terminal output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: zimrs convert --archive PATH [options]

Convert an English Wiktionary ZIM archive into a queryable SQLite database.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	globals := GlobalFlags{JSON: *jsonOut, Quiet: *quiet, NoColor: *noColor}
	ui.InitColors(globals.NoColor)
	logger := newLogger(*logLevel, globals.JSON)

	if *archivePath == "" {
		zerrors.FatalError(zerrors.NewConfigInvalid(
			"missing required --archive flag",
			"convert needs a ZIM archive to read",
			"pass --archive /path/to/archive.zim",
			nil,
		), globals.JSON)
	}

	cfg := loadConfigOrExit(*configPath, globals.JSON)

	if *maxEntries > 0 {
		n := *maxEntries
		cfg.Selection.MaxEntries = &n
	}
	if *startIndex >= 0 {
		cfg.Selection.StartIndex = *startIndex
	}
	if *extractionThreads > 0 {
		cfg.Workers.ExtractionThreads = *extractionThreads
	}
	if *noResume {
		cfg.Checkpoint.Enabled = false
	}

	serveMetrics(*metricsAddr, logger)

	arc, err := openArchive(*archivePath)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = arc.Close() }()

	// storage.Open creates and migrates the file, so whether it already held
	// data has to be checked before opening it.
	existedWithData := false
	if info, statErr := os.Stat(cfg.SQLite.Path); statErr == nil && info.Size() > 0 {
		existedWithData = true
	}

	store, err := storage.Open(cfg.SQLite, logger)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = store.Close() }()

	if !*overwrite && !*noResume {
		w, checkErr := store.LoadCheckpoint(context.Background(), cfg.Checkpoint.Name)
		if checkErr != nil {
			zerrors.FatalError(checkErr, globals.JSON)
		}
		if existedWithData && !w.Found {
			zerrors.FatalError(zerrors.NewConfigInvalid(
				"refusing to write into an existing database",
				fmt.Sprintf("%s already exists and holds no checkpoint for %q", cfg.SQLite.Path, cfg.Checkpoint.Name),
				"pass --overwrite to reuse the file, or point --config at the file that produced it",
				nil,
			), globals.JSON)
		}
	}

	pipeline := ingestion.NewPipeline(*cfg, store, logger)

	ctx, cancel := cancellableContext()
	defer cancel()

	progressCfg := NewProgressConfig(globals)
	bar := NewProgressBar(progressCfg, int64(arc.EntryCount()), "Converting")

	result, runErr := pipeline.Run(ctx, arc)
	if bar != nil {
		_ = bar.Finish()
	}

	if result == nil {
		zerrors.FatalError(runErr, globals.JSON)
		return
	}

	if globals.JSON {
		_ = output.JSON(result)
	} else if !globals.Quiet {
		ui.Header("Conversion Summary")
		fmt.Printf("  %s %s\n", ui.Label("Entries seen:"), ui.CountText(result.EntriesSeen))
		fmt.Printf("  %s %s\n", ui.Label("Entries selected:"), ui.CountText(result.EntriesSelected))
		fmt.Printf("  %s %s\n", ui.Label("Entries extracted:"), ui.CountText(result.EntriesExtracted))
		fmt.Printf("  %s %s\n", ui.Label("Entries failed:"), ui.CountText(result.EntriesFailed))
		fmt.Printf("  %s %s\n", ui.Label("Entries quarantined:"), ui.CountText(result.EntriesQuarantined))
		fmt.Printf("  %s %s\n", ui.Label("Definitions written:"), ui.CountText(result.DefinitionsWritten))
		fmt.Printf("  %s %s\n", ui.Label("Duration:"), result.Duration)
		if result.Interrupted {
			ui.Warning("Run was interrupted; checkpoint saved, re-run to resume")
		} else {
			ui.Success("Conversion complete")
		}
	}

	if runErr != nil {
		zerrors.FatalError(runErr, globals.JSON)
	}
	if result.Interrupted {
		os.Exit(zerrors.ExitInterrupted)
	}
}
