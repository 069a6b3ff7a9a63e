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

// Package main implements the zimrs CLI: converts an English Wiktionary ZIM
// archive into a queryable SQLite database.
//
// Usage:
//
//	zimrs convert [options]              Convert a ZIM archive to SQLite (default command)
//	zimrs verify-zim --archive PATH      Pre-flight archive validation
//	zimrs reindex [options]              Catch up the FTS index
//	zimrs export-json [options]          Dump the database as JSON
//	zimrs sample-db [options]             Run the pipeline over a small synthetic fixture
//	zimrs build-artifacts [options]      Package the database as a checksummed tarball
//	zimrs status [options]                Report recent ingestion runs and error samples
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carry output-mode switches shared by every subcommand.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `zimrs - Wiktionary ZIM to SQLite converter

Usage:
  zimrs <command> [options]

Commands:
  convert          Convert a ZIM archive to SQLite (default command)
  verify-zim       Pre-flight archive validation
  reindex          Catch up the full-text search index
  export-json      Dump the database as a JSON document
  sample-db        Run the pipeline over a small synthetic fixture
  build-artifacts  Package the database as a checksummed tarball
  status           Report recent ingestion runs and error samples

Global Options:
  --version        Show version and exit

Run 'zimrs <command> -h' for command-specific options.
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("zimrs version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	command := "convert"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "convert":
		runConvert(args)
	case "verify-zim":
		runVerifyZim(args)
	case "reindex":
		runReindex(args)
	case "export-json":
		runExportJSON(args)
	case "sample-db":
		runSampleDB(args)
	case "build-artifacts":
		runBuildArtifacts(args)
	case "status":
		runStatus(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
