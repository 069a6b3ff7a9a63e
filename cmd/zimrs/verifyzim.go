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
	"github.com/sguzman/zimrs-go/pkg/config"
	"github.com/sguzman/zimrs-go/pkg/verify"
)

// runVerifyZim executes the 'verify-zim' command: a pre-flight integrity
// check run before committing to a full conversion.
func runVerifyZim(args []string) {
	fs := flag.NewFlagSet("verify-zim", flag.ExitOnError)
	var (
		archivePath  = fs.String("archive", "", "Path to the ZIM archive to verify (required)")
		configPath   = fs.String("config", "", "Path to a TOML configuration file")
		tailBytes    = fs.Int("tail-bytes", 0, "Override verify.tail_bytes (0 = use config)")
		skipChecksum = fs.Bool("skip-checksum", false, "Skip the archive's internal checksum check")
		jsonOut      = fs.Bool("json", false, "Emit machine-readable JSON output")
		quiet        = fs.Bool("quiet", false, "Suppress non-essential output")
		noColor      = fs.Bool("no-color", false, "Disable colored terminal output")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: zimrs verify-zim --archive PATH [options]

Validate a ZIM archive's header, tail window, and checksum before converting it.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	globals := GlobalFlags{JSON: *jsonOut, Quiet: *quiet, NoColor: *noColor}
	ui.InitColors(globals.NoColor)

	if *archivePath == "" {
		zerrors.FatalError(zerrors.NewConfigInvalid(
			"missing required --archive flag",
			"verify-zim needs a ZIM archive to read",
			"pass --archive /path/to/archive.zim",
			nil,
		), globals.JSON)
	}

	var vcfg config.Verify
	if *configPath != "" {
		cfg := loadConfigOrExit(*configPath, globals.JSON)
		vcfg = cfg.Verify
	} else {
		vcfg = config.Default().Verify
	}
	if *tailBytes > 0 {
		vcfg.TailBytes = *tailBytes
	}
	if *skipChecksum {
		vcfg.SkipChecksum = true
	}

	arc, err := openArchive(*archivePath)
	if err != nil {
		zerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = arc.Close() }()

	ctx, cancel := cancellableContext()
	defer cancel()

	report, err := verify.Run(ctx, arc, verify.FileTailReader{Path: *archivePath}, vcfg)
	if err != nil {
		if globals.JSON {
			_ = output.JSONError(err)
		}
		zerrors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(report)
		return
	}
	if !globals.Quiet {
		ui.Header("Archive Verification")
		fmt.Printf("  %s %d\n", ui.Label("Declared size:"), report.DeclaredSize)
		fmt.Printf("  %s %d\n", ui.Label("Actual size:"), report.ActualSize)
		fmt.Printf("  %s %d\n", ui.Label("Entry count:"), report.EntryCount)
		fmt.Printf("  %s %s\n", ui.Label("UUID:"), report.UUID)
		if report.ChecksumSkipped {
			ui.Warning("Checksum check skipped")
		} else if report.ChecksumOK {
			ui.Success("Checksum OK")
		}
	}
}
