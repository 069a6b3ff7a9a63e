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

	"github.com/sguzman/zimrs-go/internal/zimfake"
	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/internal/output"
	"github.com/sguzman/zimrs-go/internal/ui"
	"github.com/sguzman/zimrs-go/pkg/ingestion"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

// sampleFixturePages is a small, hand-written Wiktionary-style fixture used
// by sample-db to exercise the whole pipeline without a real ZIM decoder.
func sampleFixturePages() []zimfake.Page {
	return []zimfake.Page{
		{
			Namespace: "A", URL: "A/Dog", Title: "Dog", MIME: "text/html",
			HTML: `<html><body>
<h2><span class="mw-headline" id="English">English</span></h2>
<h3><span class="mw-headline" id="Noun">Noun</span></h3>
<ol><li>A domesticated carnivorous mammal.</li></ol>
</body></html>`,
		},
		{
			Namespace: "A", URL: "A/Cat", Title: "Cat", MIME: "text/html",
			HTML: `<html><body>
<h2><span class="mw-headline" id="English">English</span></h2>
<h3><span class="mw-headline" id="Noun">Noun</span></h3>
<ol><li>A small domesticated carnivorous mammal.</li></ol>
</body></html>`,
		},
		{
			Namespace: "A", URL: "A/Puppy", Title: "Puppy", MIME: "text/html",
			IsRedirect: true, RedirectTargetURL: "A/Dog",
		},
		{
			Namespace: "M", URL: "M/Description", Title: "Description", MIME: "text/plain",
			HTML: "English Wiktionary sample",
		},
	}
}

// runSampleDB executes the 'sample-db' command: runs the full pipeline over
// a small synthetic fixture so the stack can be smoke-tested without a ZIM
// decoder dependency.
func runSampleDB(args []string) {
	fs := flag.NewFlagSet("sample-db", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "Path to a TOML configuration file")
		logLevel   = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		jsonOut    = fs.Bool("json", false, "Emit machine-readable JSON output")
		quiet      = fs.Bool("quiet", false, "Suppress progress output")
		noColor    = fs.Bool("no-color", false, "Disable colored terminal output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: zimrs sample-db [options]

Run the conversion pipeline over a small built-in fixture, useful for
smoke-testing a build without a real ZIM archive on hand.

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

	var cfg = loadConfigOrExitOrDefault(*configPath, globals.JSON)

	arc := zimfake.New(sampleFixturePages())

	store, err := storage.Open(cfg.SQLite, logger)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = store.Close() }()

	pipeline := ingestion.NewPipeline(*cfg, store, logger)

	ctx, cancel := cancellableContext()
	defer cancel()

	result, runErr := pipeline.Run(ctx, arc)
	if result == nil {
		zerrors.FatalError(runErr, globals.JSON)
		return
	}

	if globals.JSON {
		_ = output.JSON(result)
	} else if !globals.Quiet {
		ui.Header("Sample Pipeline Run")
		fmt.Printf("  %s %s\n", ui.Label("Entries extracted:"), ui.CountText(result.EntriesExtracted))
		fmt.Printf("  %s %s\n", ui.Label("Definitions written:"), ui.CountText(result.DefinitionsWritten))
		ui.Success("Sample database written to " + cfg.SQLite.Path)
	}

	if runErr != nil {
		zerrors.FatalError(runErr, globals.JSON)
	}
}
