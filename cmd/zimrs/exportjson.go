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
	"bufio"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/internal/ui"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

// runExportJSON executes the 'export-json' command: dumps every page, with
// its definitions/relations/aliases, as a single JSON array.
func runExportJSON(args []string) {
	fs := flag.NewFlagSet("export-json", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "Path to a TOML configuration file")
		outputPath = fs.String("output", "", "Output file path (default: stdout)")
		logLevel   = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		quiet      = fs.Bool("quiet", false, "Suppress status messages")
		noColor    = fs.Bool("no-color", false, "Disable colored terminal output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: zimrs export-json --config PATH [--output PATH]

Dump the database's pages, definitions, relations, and aliases as a JSON array.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	globals := GlobalFlags{Quiet: *quiet, NoColor: *noColor}
	ui.InitColors(globals.NoColor)
	logger := newLogger(*logLevel, false)

	cfg := loadConfigOrExit(*configPath, false)

	store, err := storage.Open(cfg.SQLite, logger)
	if err != nil {
		zerrors.FatalError(err, false)
	}
	defer func() { _ = store.Close() }()

	out := os.Stdout
	if *outputPath != "" {
		f, createErr := os.Create(*outputPath)
		if createErr != nil {
			zerrors.FatalError(zerrors.NewDatabaseIO("cannot create output file", createErr.Error(), "check the --output path is writable", createErr), false)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	w := bufio.NewWriter(out)
	ctx, cancel := cancellableContext()
	defer cancel()

	if err := store.Export(ctx, w); err != nil {
		zerrors.FatalError(err, false)
	}
	if err := w.Flush(); err != nil {
		zerrors.FatalError(zerrors.NewDatabaseIO("cannot flush export output", err.Error(), "", err), false)
	}

	if !globals.Quiet && *outputPath != "" {
		ui.Successf("Exported database to %s", *outputPath)
	}
}
