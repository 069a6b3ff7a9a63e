// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoad_MinimalDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zimrs.toml")
	doc := `
[sqlite]
path = "out.sqlite"

[workers]
extraction_threads = 4
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SQLite.Path != "out.sqlite" {
		t.Errorf("SQLite.Path = %q, want out.sqlite", cfg.SQLite.Path)
	}
	if cfg.Workers.ExtractionThreads != 4 {
		t.Errorf("Workers.ExtractionThreads = %d, want 4", cfg.Workers.ExtractionThreads)
	}
	// Defaults for untouched sections survive.
	if cfg.Extraction.MaxSenseDepth != 3 {
		t.Errorf("Extraction.MaxSenseDepth = %d, want 3", cfg.Extraction.MaxSenseDepth)
	}
	if len(cfg.Selection.IncludeNamespaces) != 1 || cfg.Selection.IncludeNamespaces[0] != "A" {
		t.Errorf("Selection.IncludeNamespaces = %v, want [A]", cfg.Selection.IncludeNamespaces)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	var ue *zerrors.UserError
	if !asUserError(t, err, &ue) {
		t.Fatalf("expected *errors.UserError, got %T", err)
	}
	if ue.ExitCode != zerrors.ExitConfig {
		t.Errorf("ExitCode = %d, want %d", ue.ExitCode, zerrors.ExitConfig)
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zimrs.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestValidate_RejectsBadWorkerCount(t *testing.T) {
	cfg := Default()
	cfg.Workers.ExtractionThreads = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero extraction threads")
	}
}

func TestValidate_RejectsBadConfidenceThreshold(t *testing.T) {
	cfg := Default()
	cfg.Extraction.ConfidenceThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range confidence threshold")
	}
}

func TestValidate_RejectsEmptySQLitePath(t *testing.T) {
	cfg := Default()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty sqlite path")
	}
}

func TestArchivePath_EnvOverride(t *testing.T) {
	old := os.Getenv("ZIMRS_TEST_ZIM")
	defer os.Setenv("ZIMRS_TEST_ZIM", old)

	os.Setenv("ZIMRS_TEST_ZIM", "/tmp/fixture.zim")
	if got := ArchivePath("/flag/path.zim"); got != "/tmp/fixture.zim" {
		t.Errorf("ArchivePath() = %q, want env override", got)
	}

	os.Unsetenv("ZIMRS_TEST_ZIM")
	if got := ArchivePath("/flag/path.zim"); got != "/flag/path.zim" {
		t.Errorf("ArchivePath() = %q, want flag value", got)
	}
}

func asUserError(t *testing.T, err error, target **zerrors.UserError) bool {
	t.Helper()
	ue, ok := err.(*zerrors.UserError)
	if ok {
		*target = ue
	}
	return ok
}
