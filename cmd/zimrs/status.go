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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/internal/output"
	"github.com/sguzman/zimrs-go/internal/ui"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

// StatusReport is the JSON projection of 'zimrs status': recent runs plus
// each run's error samples, the read side of ingestion_runs/error_samples.
type StatusReport struct {
	Runs []RunStatus `json:"runs"`
}

// RunStatus pairs one run's summary with its recorded error samples.
type RunStatus struct {
	storage.RunSummary
	ErrorSamples []storage.ErrorSampleRow `json:"error_samples,omitempty"`
}

// runStatus executes the 'status' command: reports recent ingestion runs
// and their quarantined-entry diagnostics straight out of ingestion_runs and
// error_samples, the tables StartRun/FinishRun/AddRunCounters/
// RecordErrorSample write during a convert run.
func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "Path to a TOML configuration file")
		runs       = fs.Int("runs", 5, "Number of most recent runs to show")
		samples    = fs.Int("samples", 10, "Number of error samples to show per run")
		jsonOut    = fs.Bool("json", false, "Emit machine-readable JSON output")
		noColor    = fs.Bool("no-color", false, "Disable colored terminal output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: zimrs status [options]

Report recent ingestion runs and their quarantined-entry diagnostics.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	globals := GlobalFlags{JSON: *jsonOut, NoColor: *noColor}
	ui.InitColors(globals.NoColor)

	cfg := loadConfigOrExitOrDefault(*configPath, globals.JSON)

	store, err := storage.Open(cfg.SQLite, nil)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := cancellableContext()
	defer cancel()

	runSummaries, err := store.RecentRuns(ctx, *runs)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}

	report := StatusReport{Runs: make([]RunStatus, 0, len(runSummaries))}
	for _, r := range runSummaries {
		samplesForRun, err := store.ErrorSamples(ctx, r.ID, *samples)
		if err != nil {
			zerrors.FatalError(err, globals.JSON)
		}
		report.Runs = append(report.Runs, RunStatus{RunSummary: r, ErrorSamples: samplesForRun})
	}

	if globals.JSON {
		_ = output.JSON(report)
		return
	}

	if len(report.Runs) == 0 {
		ui.Info("No ingestion runs recorded yet")
		return
	}

	ui.Header("Ingestion Runs")
	for _, r := range report.Runs {
		fmt.Printf("  %s %d  %s %s  %s %s\n",
			ui.Label("run"), r.ID, ui.Label("started"), r.StartAt, ui.Label("status"), r.ExitStatus)
		fmt.Printf("    pages_seen=%d pages_written=%d definitions_written=%d relations_written=%d errors_seen=%d\n",
			r.PagesSeen, r.PagesWritten, r.DefinitionsWritten, r.RelationsWritten, r.ErrorsSeen)
		for _, e := range r.ErrorSamples {
			fmt.Printf("    - [%s] entry %d %s: %s\n", e.Kind, e.EntryIndex, e.URL, e.Message)
		}
	}
}
