// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/internal/ui"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

// runReindex executes the 'reindex' command: adds to the FTS5 index the
// pages written since the named reindex watermark.
func runReindex(args []string) {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "Path to a TOML configuration file")
		name       = fs.String("name", "", "Override reindex.name (empty = use config)")
		batchSize  = fs.Int("batch-size", 0, "Override reindex.batch_size (0 = use config)")
		logLevel   = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		jsonOut    = fs.Bool("json", false, "Emit machine-readable JSON output")
		quiet      = fs.Bool("quiet", false, "Suppress progress output")
		noColor    = fs.Bool("no-color", false, "Disable colored terminal output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: zimrs reindex --config PATH [options]

Index pages added since the last reindex watermark into the full-text search
index, in page-id batches.

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

	cfg := loadConfigOrExit(*configPath, globals.JSON)
	reindexName := cfg.Reindex.Name
	if *name != "" {
		reindexName = *name
	}
	reindexBatch := cfg.Reindex.BatchSize
	if *batchSize > 0 {
		reindexBatch = *batchSize
	}

	store, err := storage.Open(cfg.SQLite, logger)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := cancellableContext()
	defer cancel()

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, "Reindexing")

	total := 0
	err = store.Reindex(ctx, reindexName, reindexBatch, logger, func(p storage.ReindexProgress) {
		total += p.RowsIndexed
		if spinner != nil {
			_ = spinner.Add(p.RowsIndexed)
		}
	})
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}

	if !globals.Quiet {
		ui.Successf("Reindexed %d rows", total)
	}
}
