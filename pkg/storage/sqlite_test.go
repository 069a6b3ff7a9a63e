// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sguzman/zimrs-go/pkg/config"
	"github.com/sguzman/zimrs-go/pkg/extract"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default().SQLite
	cfg.Path = filepath.Join(t.TempDir(), "test.sqlite")
	s, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(index uint64, url string) Record {
	return Record{
		EntryIndex: index,
		Page: PageInput{
			Namespace: "A",
			URL:       url,
			MIME:      "text/html",
			Title:     "Dog",
			PlainText: "A domesticated carnivorous mammal.",
		},
		Definitions: []extract.Definition{
			{Language: "English", PartOfSpeech: "Noun", SenseNumber: 1, SubSensePath: "1", Text: "A mammal.", Confidence: 1.0},
		},
		Relations: []extract.Relation{
			{Language: "English", RelationType: extract.RelationSynonym, TargetLemma: "canine", TargetLanguage: "English"},
		},
		Aliases: []extract.Alias{
			{Language: "English", Alias: "Dog", Kind: extract.AliasSurface},
			{Language: "English", Alias: "dog", Kind: extract.AliasLowercase},
		},
	}
}

func TestOpen_MigratesSchema(t *testing.T) {
	s := newTestStore(t)
	var version int
	if err := s.DB().QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 3 {
		t.Errorf("schema version = %d, want 3", version)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	cfg := config.Default().SQLite
	cfg.Path = filepath.Join(t.TempDir(), "reopen.sqlite")

	s1, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	s2, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer func() { _ = s2.Close() }()
}

func TestWriteBatch_InsertsAllRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, "digest-1")
	if err != nil {
		t.Fatalf("StartRun() error: %v", err)
	}

	outcome, err := s.WriteBatch(ctx, runID, []Record{sampleRecord(0, "A/Dog")}, 0, "default")
	if err != nil {
		t.Fatalf("WriteBatch() error: %v", err)
	}
	if outcome.PagesWritten != 1 || outcome.DefinitionsWritten != 1 || outcome.RelationsWritten != 1 || outcome.AliasesWritten != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var pageID int64
	if err := s.DB().QueryRowContext(ctx, `SELECT id FROM pages WHERE url = ?`, "A/Dog").Scan(&pageID); err != nil {
		t.Fatalf("query page: %v", err)
	}
	if pageID == 0 {
		t.Fatal("expected non-zero page id")
	}
}

func TestWriteBatch_CleanReplaceOnReingest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	runID, _ := s.StartRun(ctx, "digest")

	first := sampleRecord(0, "A/Dog")
	if _, err := s.WriteBatch(ctx, runID, []Record{first}, 0, "default"); err != nil {
		t.Fatalf("first WriteBatch() error: %v", err)
	}

	second := sampleRecord(0, "A/Dog")
	second.Definitions = []extract.Definition{
		{Language: "English", PartOfSpeech: "Verb", SenseNumber: 1, SubSensePath: "1", Text: "To follow closely.", Confidence: 0.9},
	}
	second.Relations = nil

	if _, err := s.WriteBatch(ctx, runID, []Record{second}, 1, "default"); err != nil {
		t.Fatalf("second WriteBatch() error: %v", err)
	}

	var pageCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE url = ?`, "A/Dog").Scan(&pageCount); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if pageCount != 1 {
		t.Fatalf("page count = %d, want 1 (clean-replace should not duplicate the page)", pageCount)
	}

	var defCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM definitions d JOIN pages p ON p.id = d.page_id WHERE p.url = ?`, "A/Dog").Scan(&defCount); err != nil {
		t.Fatalf("count definitions: %v", err)
	}
	if defCount != 1 {
		t.Fatalf("definition count = %d, want 1 (old Noun definition should be replaced)", defCount)
	}

	var relCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM relations r JOIN pages p ON p.id = r.page_id WHERE p.url = ?`, "A/Dog").Scan(&relCount); err != nil {
		t.Fatalf("count relations: %v", err)
	}
	if relCount != 0 {
		t.Fatalf("relation count = %d, want 0 (second record carried no relations)", relCount)
	}
}

func TestWriteBatch_AdvancesCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	runID, _ := s.StartRun(ctx, "digest")

	if _, err := s.WriteBatch(ctx, runID, []Record{sampleRecord(0, "A/Dog")}, 42, "default"); err != nil {
		t.Fatalf("WriteBatch() error: %v", err)
	}

	w, err := s.LoadCheckpoint(ctx, "default")
	if err != nil {
		t.Fatalf("LoadCheckpoint() error: %v", err)
	}
	if !w.Found || w.LastEntryIndex != 42 {
		t.Fatalf("checkpoint = %+v, want LastEntryIndex 42", w)
	}
}

func TestLoadCheckpoint_NotFound(t *testing.T) {
	s := newTestStore(t)
	w, err := s.LoadCheckpoint(context.Background(), "never-advanced")
	if err != nil {
		t.Fatalf("LoadCheckpoint() error: %v", err)
	}
	if w.Found {
		t.Fatalf("expected Found=false for an unadvanced checkpoint, got %+v", w)
	}
}

func TestReindex_RebuildsFTS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	runID, _ := s.StartRun(ctx, "digest")

	if _, err := s.WriteBatch(ctx, runID, []Record{sampleRecord(0, "A/Dog")}, 0, "default"); err != nil {
		t.Fatalf("WriteBatch() error: %v", err)
	}
	// Simulate a stale FTS index by wiping it out from under the page row.
	if _, err := s.DB().ExecContext(ctx, `DELETE FROM page_fts`); err != nil {
		t.Fatalf("delete page_fts: %v", err)
	}

	var rowsSeen int
	if err := s.Reindex(ctx, "default", 100, nil, func(p ReindexProgress) { rowsSeen += p.RowsIndexed }); err != nil {
		t.Fatalf("Reindex() error: %v", err)
	}
	if rowsSeen != 1 {
		t.Fatalf("rowsSeen = %d, want 1", rowsSeen)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM page_fts WHERE page_fts MATCH 'mammal'`).Scan(&count); err != nil {
		t.Fatalf("fts query: %v", err)
	}
	if count != 1 {
		t.Fatalf("fts match count = %d, want 1", count)
	}
}

func TestReindex_RequiresFTSEnabled(t *testing.T) {
	cfg := config.Default().SQLite
	cfg.Path = filepath.Join(t.TempDir(), "nofts.sqlite")
	cfg.EnableFTS = false
	s, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = s.Close() }()

	err = s.Reindex(context.Background(), "default", 100, nil, nil)
	if err == nil {
		t.Fatal("expected an error when enable_fts is false")
	}
}

func TestExport_ProducesValidJSONArray(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	runID, _ := s.StartRun(ctx, "digest")

	if _, err := s.WriteBatch(ctx, runID, []Record{sampleRecord(0, "A/Dog"), sampleRecord(1, "A/Cat")}, 1, "default"); err != nil {
		t.Fatalf("WriteBatch() error: %v", err)
	}

	var buf strings.Builder
	if err := s.Export(ctx, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	var pages []ExportedPage
	if err := json.Unmarshal([]byte(buf.String()), &pages); err != nil {
		t.Fatalf("exported output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(pages) != 2 {
		t.Fatalf("got %d exported pages, want 2", len(pages))
	}
	if len(pages[0].Definitions) != 1 || len(pages[0].Aliases) != 2 {
		t.Errorf("unexpected exported page: %+v", pages[0])
	}
}

func TestStartRunFinishRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, "digest-abc")
	if err != nil {
		t.Fatalf("StartRun() error: %v", err)
	}
	if err := s.FinishRun(ctx, runID, "completed"); err != nil {
		t.Fatalf("FinishRun() error: %v", err)
	}

	var status string
	if err := s.DB().QueryRowContext(ctx, `SELECT exit_status FROM ingestion_runs WHERE id = ?`, runID).Scan(&status); err != nil {
		t.Fatalf("query run: %v", err)
	}
	if status != "completed" {
		t.Errorf("exit_status = %q, want completed", status)
	}
}

func TestRecordErrorSample_RespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	runID, _ := s.StartRun(ctx, "digest")

	for i := 0; i < 5; i++ {
		if err := s.RecordErrorSample(ctx, runID, uint64(i), "A/x", "parse_error", "boom", 3); err != nil {
			t.Fatalf("RecordErrorSample() error: %v", err)
		}
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM error_samples WHERE run_id = ?`, runID).Scan(&count); err != nil {
		t.Fatalf("count error_samples: %v", err)
	}
	if count != 3 {
		t.Fatalf("error_samples count = %d, want 3 (sample_limit)", count)
	}
}
