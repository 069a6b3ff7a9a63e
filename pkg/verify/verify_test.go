// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sguzman/zimrs-go/internal/zimfake"
	"github.com/sguzman/zimrs-go/pkg/config"
)

func writeFileTail(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zim")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestRun_AcceptsHealthyArchive(t *testing.T) {
	arc := zimfake.New([]zimfake.Page{{Namespace: "A", URL: "A/Dog", Title: "Dog", MIME: "text/html", HTML: "<html></html>"}})
	path := writeFileTail(t, []byte("some trailing content that is not all zero"))

	report, err := Run(context.Background(), arc, FileTailReader{Path: path}, config.Default().Verify)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !report.ChecksumOK {
		t.Error("expected ChecksumOK to be true")
	}
}

func TestRun_RejectsDeclaredSizeExceedingActual(t *testing.T) {
	arc := zimfake.New([]zimfake.Page{{Namespace: "A", URL: "A/Dog", Title: "Dog", MIME: "text/html", HTML: "<html></html>"}})
	arc.CorruptTail()

	_, err := Run(context.Background(), arc, nil, config.Default().Verify)
	if err == nil {
		t.Fatal("expected an error for a truncated archive")
	}
}

func TestRun_RejectsZeroTailWindow(t *testing.T) {
	arc := zimfake.New([]zimfake.Page{{Namespace: "A", URL: "A/Dog", Title: "Dog", MIME: "text/html", HTML: "<html></html>"}})
	path := writeFileTail(t, make([]byte, 4096))

	_, err := Run(context.Background(), arc, FileTailReader{Path: path}, config.Default().Verify)
	if err == nil {
		t.Fatal("expected an error for an all-zero tail window")
	}
}

func TestRun_SkipChecksum(t *testing.T) {
	arc := zimfake.New([]zimfake.Page{{Namespace: "A", URL: "A/Dog", Title: "Dog", MIME: "text/html", HTML: "<html></html>"}})
	cfg := config.Default().Verify
	cfg.SkipChecksum = true

	report, err := Run(context.Background(), arc, nil, cfg)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !report.ChecksumSkipped {
		t.Error("expected ChecksumSkipped to be true")
	}
}
