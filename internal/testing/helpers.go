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

package testing

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sguzman/zimrs-go/pkg/config"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

// SetupTestStore opens an on-disk SQLite database under t.TempDir() with the
// default config, migrates its schema, and registers cleanup to close it.
//
// Example:
//
//	store := testing.SetupTestStore(t)
//	testing.InsertTestPage(t, store, "A", "A/Dog", "Dog", "<html></html>")
func SetupTestStore(t *testing.T) *storage.Store {
	t.Helper()

	cfg := config.Default().SQLite
	cfg.Path = filepath.Join(t.TempDir(), "test.sqlite")

	store, err := storage.Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// InsertTestPage writes a single page row directly, bypassing WriteBatch,
// for tests that only need a page present and don't care about the
// run/checkpoint bookkeeping WriteBatch also performs.
func InsertTestPage(t *testing.T, store *storage.Store, namespace, url, title, plainText string) int64 {
	t.Helper()

	res, err := store.DB().ExecContext(context.Background(),
		`INSERT INTO pages (namespace, url, mime, title, plain_text, created_at, updated_at)
		 VALUES (?, ?, 'text/html', ?, ?, datetime('now'), datetime('now'))`,
		namespace, url, title, plainText,
	)
	if err != nil {
		t.Fatalf("failed to insert test page: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read inserted page id: %v", err)
	}
	return id
}

// InsertTestDefinition attaches a definition row to an existing page.
func InsertTestDefinition(t *testing.T, store *storage.Store, pageID int64, language, partOfSpeech, text string, senseNumber int) {
	t.Helper()

	_, err := store.DB().ExecContext(context.Background(),
		`INSERT INTO definitions (page_id, language, part_of_speech, sense_number, sub_sense_path, text, confidence)
		 VALUES (?, ?, ?, ?, '', ?, 1.0)`,
		pageID, language, partOfSpeech, senseNumber, text,
	)
	if err != nil {
		t.Fatalf("failed to insert test definition: %v", err)
	}
}

// InsertTestRelation attaches a synonym/antonym/translation relation row
// to an existing page.
func InsertTestRelation(t *testing.T, store *storage.Store, pageID int64, language, relationType, targetLemma string) {
	t.Helper()

	_, err := store.DB().ExecContext(context.Background(),
		`INSERT INTO relations (page_id, language, relation_type, target_lemma) VALUES (?, ?, ?, ?)`,
		pageID, language, relationType, targetLemma,
	)
	if err != nil {
		t.Fatalf("failed to insert test relation: %v", err)
	}
}

// InsertTestLemmaAlias attaches an alternate-form/alias row to an existing
// page, e.g. an inflected form pointing back at its lemma.
func InsertTestLemmaAlias(t *testing.T, store *storage.Store, pageID int64, language, alias, aliasKind string) {
	t.Helper()

	_, err := store.DB().ExecContext(context.Background(),
		`INSERT INTO lemma_aliases (page_id, language, alias, alias_kind) VALUES (?, ?, ?, ?)`,
		pageID, language, alias, aliasKind,
	)
	if err != nil {
		t.Fatalf("failed to insert test lemma alias: %v", err)
	}
}

// QueryPageTitles returns every page title in the database, ordered by id,
// for assertions that only care about which pages exist.
func QueryPageTitles(t *testing.T, store *storage.Store) []string {
	t.Helper()

	rows, err := store.DB().QueryContext(context.Background(), `SELECT title FROM pages ORDER BY id`)
	if err != nil {
		t.Fatalf("failed to query page titles: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			t.Fatalf("failed to scan page title: %v", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("failed iterating page titles: %v", err)
	}
	return titles
}

// CountRows returns the row count of an arbitrary table, for assertions
// like "exactly one definitions row survived a clean-replace re-ingest".
func CountRows(t *testing.T, store *storage.Store, table string) int {
	t.Helper()

	var n int
	// table is always a caller-supplied literal identifier from this test
	// package, never user input, so string formatting here is safe.
	row := store.DB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table)
	if err := row.Scan(&n); err != nil && err != sql.ErrNoRows {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	return n
}
