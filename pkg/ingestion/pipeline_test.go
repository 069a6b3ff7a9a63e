// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sguzman/zimrs-go/internal/zimfake"
	"github.com/sguzman/zimrs-go/pkg/config"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	cfg := config.Default().SQLite
	cfg.Path = filepath.Join(t.TempDir(), "pipeline.sqlite")
	s, err := storage.Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dogPage() zimfake.Page {
	return zimfake.Page{
		Namespace: "A",
		URL:       "A/Dog",
		Title:     "Dog",
		MIME:      "text/html",
		HTML:      `<html><body><h2>English</h2><h3>Noun</h3><ol><li>A domesticated mammal.</li></ol></body></html>`,
	}
}

func TestPipeline_Run_WritesExtractedPages(t *testing.T) {
	store := newTestStore(t)
	cfg := config.Default()
	cfg.Checkpoint.Name = "default"
	cfg.Workers.ExtractionThreads = 2
	cfg.Workers.QueueCapacity = 8
	cfg.SQLite.BatchSize = 1
	cfg.SQLite.BatchFlushMS = 50

	arc := zimfake.New([]zimfake.Page{dogPage(), {
		Namespace: "A", URL: "A/Cat", Title: "Cat", MIME: "text/html",
		HTML: `<html><body><h2>English</h2><h3>Noun</h3><ol><li>A small domesticated feline.</li></ol></body></html>`,
	}})

	p := NewPipeline(*cfg, store, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := p.Run(ctx, arc)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.EntriesExtracted != 2 {
		t.Fatalf("EntriesExtracted = %d, want 2", res.EntriesExtracted)
	}
	if res.DefinitionsWritten != 2 {
		t.Fatalf("DefinitionsWritten = %d, want 2", res.DefinitionsWritten)
	}

	var pageCount int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&pageCount); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if pageCount != 2 {
		t.Fatalf("page count = %d, want 2", pageCount)
	}
}

func TestPipeline_Run_SkipsNonArticleNamespace(t *testing.T) {
	store := newTestStore(t)
	cfg := config.Default()
	cfg.Checkpoint.Name = "default"

	arc := zimfake.New([]zimfake.Page{
		dogPage(),
		{Namespace: "M", URL: "M/meta", Title: "meta", MIME: "text/html", HTML: "<html></html>"},
	})

	p := NewPipeline(*cfg, store, nil)
	res, err := p.Run(context.Background(), arc)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.EntriesSelected != 1 {
		t.Fatalf("EntriesSelected = %d, want 1 (the M namespace entry should be rejected)", res.EntriesSelected)
	}
}

func TestPipeline_Run_ResumesFromCheckpoint(t *testing.T) {
	store := newTestStore(t)
	cfg := config.Default()
	cfg.Checkpoint.Name = "default"

	arc := zimfake.New([]zimfake.Page{dogPage(), {
		Namespace: "A", URL: "A/Cat", Title: "Cat", MIME: "text/html",
		HTML: `<html><body><h2>English</h2><h3>Noun</h3><ol><li>A small domesticated feline.</li></ol></body></html>`,
	}})

	p := NewPipeline(*cfg, store, nil)
	if _, err := p.Run(context.Background(), arc); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	// A second run over the same archive should resume past both entries
	// and select nothing new.
	res, err := p.Run(context.Background(), arc)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if res.EntriesSelected != 0 {
		t.Fatalf("EntriesSelected = %d on resumed run, want 0", res.EntriesSelected)
	}
}

func TestPipeline_Run_FilteredDefinitionsAreNotFailures(t *testing.T) {
	store := newTestStore(t)
	cfg := config.Default()
	cfg.Checkpoint.Name = "default"
	cfg.Extraction.ConfidenceThreshold = 2.0 // impossible threshold: every sense gets dropped, not a hard failure

	arc := zimfake.New([]zimfake.Page{dogPage()})
	p := NewPipeline(*cfg, store, nil)

	res, err := p.Run(context.Background(), arc)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// A confidence threshold above 1.0 filters every definition but is not
	// an extraction error; the page itself should still be written.
	if res.EntriesFailed != 0 {
		t.Fatalf("EntriesFailed = %d, want 0", res.EntriesFailed)
	}
	if res.EntriesExtracted != 1 {
		t.Fatalf("EntriesExtracted = %d, want 1", res.EntriesExtracted)
	}
}

func TestPipeline_Run_EntryReadFailureIsQuarantinedAndCheckpointSafe(t *testing.T) {
	store := newTestStore(t)
	cfg := config.Default()
	cfg.Checkpoint.Name = "default"

	catPage := zimfake.Page{
		Namespace: "A", URL: "A/Cat", Title: "Cat", MIME: "text/html",
		HTML: `<html><body><h2>English</h2><h3>Noun</h3><ol><li>A small domesticated feline.</li></ol></body></html>`,
	}
	arc := zimfake.New([]zimfake.Page{dogPage(), catPage})
	arc.FailEntryAt(0)

	p := NewPipeline(*cfg, store, nil)
	res, err := p.Run(context.Background(), arc)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.EntriesFailed != 1 {
		t.Fatalf("EntriesFailed = %d, want 1", res.EntriesFailed)
	}
	if res.EntriesExtracted != 1 {
		t.Fatalf("EntriesExtracted = %d, want 1 (only the Cat entry)", res.EntriesExtracted)
	}

	samples, err := store.ErrorSamples(context.Background(), res.RunID, 10)
	if err != nil {
		t.Fatalf("ErrorSamples() error: %v", err)
	}
	if len(samples) != 1 || samples[0].Kind != "entry_read" || samples[0].EntryIndex != 0 {
		t.Fatalf("ErrorSamples() = %+v, want one entry_read sample for index 0", samples)
	}

	// A checkpoint row must exist at all: before the fix, a read failure was
	// never tracked in pending and never flushed, so a run consisting only
	// of an unreadable entry could leave no checkpoint behind at all.
	w, err := store.LoadCheckpoint(context.Background(), cfg.Checkpoint.Name)
	if err != nil {
		t.Fatalf("LoadCheckpoint() error: %v", err)
	}
	if !w.Found {
		t.Fatalf("LoadCheckpoint() found no checkpoint row, want one")
	}
}

func TestPipeline_Run_SlowExtractionTimesOut(t *testing.T) {
	store := newTestStore(t)
	cfg := config.Default()
	cfg.Checkpoint.Name = "default"
	cfg.Extraction.TaskTimeoutMS = 20

	arc := zimfake.New([]zimfake.Page{dogPage()})
	arc.DelayBlob(0, 500*time.Millisecond)

	p := NewPipeline(*cfg, store, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := p.Run(ctx, arc)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.EntriesFailed != 1 {
		t.Fatalf("EntriesFailed = %d, want 1 (the slow entry should time out)", res.EntriesFailed)
	}

	samples, err := store.ErrorSamples(context.Background(), res.RunID, 10)
	if err != nil {
		t.Fatalf("ErrorSamples() error: %v", err)
	}
	if len(samples) != 1 || samples[0].Kind != "extraction_timeout" {
		t.Fatalf("ErrorSamples() = %+v, want one extraction_timeout sample", samples)
	}
}

func TestPipeline_Run_HonorsContextCancellation(t *testing.T) {
	store := newTestStore(t)
	cfg := config.Default()
	cfg.Checkpoint.Name = "default"

	arc := zimfake.New([]zimfake.Page{dogPage()})
	p := NewPipeline(*cfg, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, arc)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.Interrupted {
		t.Fatal("expected Interrupted to be true for a pre-cancelled context")
	}
}
