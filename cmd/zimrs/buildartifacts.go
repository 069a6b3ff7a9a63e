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
	"github.com/sguzman/zimrs-go/internal/output"
	"github.com/sguzman/zimrs-go/internal/ui"
	"github.com/sguzman/zimrs-go/pkg/artifact"
)

// runBuildArtifacts executes the 'build-artifacts' command: packages a
// finished SQLite database as a checksummed, distributable tarball.
func runBuildArtifacts(args []string) {
	fs := flag.NewFlagSet("build-artifacts", flag.ExitOnError)
	var (
		dbPath  = fs.String("db", "", "Path to the SQLite database to package (required)")
		outDir  = fs.String("out", "dist", "Output directory for the tarball and checksum sidecar")
		name    = fs.String("name", "", "Base name for the tarball (default: database file name)")
		jsonOut = fs.Bool("json", false, "Emit machine-readable JSON output")
		quiet   = fs.Bool("quiet", false, "Suppress status messages")
		noColor = fs.Bool("no-color", false, "Disable colored terminal output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: zimrs build-artifacts --db PATH [options]

Package a finished database as a gzipped tarball with a SHA-256 checksum sidecar.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	globals := GlobalFlags{JSON: *jsonOut, Quiet: *quiet, NoColor: *noColor}
	ui.InitColors(globals.NoColor)

	if *dbPath == "" {
		zerrors.FatalError(zerrors.NewConfigInvalid(
			"missing required --db flag",
			"build-artifacts needs a database file to package",
			"pass --db /path/to/zimrs.sqlite",
			nil,
		), globals.JSON)
	}

	res, err := artifact.Build(*dbPath, *outDir, *name)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(res)
		return
	}
	if !globals.Quiet {
		ui.Header("Artifact Build")
		fmt.Printf("  %s %s\n", ui.Label("Tarball:"), res.TarballPath)
		fmt.Printf("  %s %s\n", ui.Label("Checksum:"), res.ChecksumPath)
		fmt.Printf("  %s %s\n", ui.Label("SHA-256:"), res.SHA256)
		ui.Success("Artifact built")
	}
}
