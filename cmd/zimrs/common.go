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
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/pkg/archive"
	"github.com/sguzman/zimrs-go/pkg/config"
)

// loadConfigOrExit loads and validates the TOML config at path, printing a
// formatted error and exiting with the taxonomy's exit code on failure.
func loadConfigOrExit(path string, jsonOutput bool) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		zerrors.FatalError(err, jsonOutput)
	}
	return cfg
}

// loadConfigOrExitOrDefault behaves like loadConfigOrExit, except an empty
// path falls back to config.Default() instead of erroring. Used by sample-db,
// which is meant to run with zero setup.
func loadConfigOrExitOrDefault(path string, jsonOutput bool) *config.Config {
	if path == "" {
		return config.Default()
	}
	return loadConfigOrExit(path, jsonOutput)
}

// newLogger builds the slog logger used across every subcommand, honoring
// the --log-level flag.
func newLogger(level string, jsonOutput bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// cancellableContext returns a context cancelled on SIGINT/SIGTERM, for the
// pipeline's cooperative shutdown.
func cancellableContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// serveMetrics starts a background Prometheus /metrics listener if addr is
// non-empty, mirroring the teacher's --metrics-addr convention.
func serveMetrics(addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics.server.stopped", "addr", addr, "err", err)
		}
	}()
	logger.Info("metrics.server.start", "addr", addr)
}

// openArchive opens the ZIM archive at path via the injected archive.Open
// seam. No decoder is vendored in this build; a deployer supplies one via a
// build-tagged file that sets archive.Open at init time.
func openArchive(path string) (archive.Archive, error) {
	if archive.Open == nil {
		return nil, zerrors.NewArchiveOpen(
			"no ZIM decoder is wired into this build",
			"archive.Open is unset",
			"link a build-tagged file that sets archive.Open to a real decoder, or use 'zimrs sample-db' to exercise the pipeline without one",
			nil,
		)
	}
	arc, err := archive.Open(path)
	if err != nil {
		return nil, zerrors.NewArchiveOpen("cannot open archive", err.Error(), "check the archive path and that the file is a valid ZIM container", err)
	}
	return arc, nil
}
