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

package storage

import "database/sql"

// migration is one forward-only, idempotent schema step.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS pages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				namespace TEXT NOT NULL,
				url TEXT NOT NULL,
				mime TEXT NOT NULL,
				title TEXT NOT NULL,
				digest TEXT,
				raw_html TEXT,
				plain_text TEXT NOT NULL DEFAULT '',
				redirect_target TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(namespace, url)
			)`,
			`CREATE TABLE IF NOT EXISTS definitions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				page_id INTEGER NOT NULL REFERENCES pages(id),
				language TEXT NOT NULL,
				part_of_speech TEXT NOT NULL,
				sense_number INTEGER NOT NULL,
				sub_sense_path TEXT NOT NULL,
				text TEXT NOT NULL,
				confidence REAL NOT NULL,
				UNIQUE(page_id, language, part_of_speech, sense_number, sub_sense_path)
			)`,
			`CREATE TABLE IF NOT EXISTS relations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				page_id INTEGER NOT NULL REFERENCES pages(id),
				language TEXT NOT NULL,
				relation_type TEXT NOT NULL,
				target_lemma TEXT NOT NULL,
				target_language TEXT,
				qualifier TEXT,
				UNIQUE(page_id, language, relation_type, target_lemma, target_language)
			)`,
			`CREATE TABLE IF NOT EXISTS lemma_aliases (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				page_id INTEGER NOT NULL REFERENCES pages(id),
				language TEXT NOT NULL,
				alias TEXT NOT NULL,
				alias_kind TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_lemma_aliases_language_alias ON lemma_aliases(language, alias)`,
			`CREATE TABLE IF NOT EXISTS ingestion_runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_at TEXT NOT NULL,
				end_at TEXT,
				pages_seen INTEGER NOT NULL DEFAULT 0,
				pages_written INTEGER NOT NULL DEFAULT 0,
				definitions_written INTEGER NOT NULL DEFAULT 0,
				relations_written INTEGER NOT NULL DEFAULT 0,
				errors_seen INTEGER NOT NULL DEFAULT 0,
				config_digest TEXT NOT NULL DEFAULT '',
				exit_status TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS ingestion_checkpoints (
				name TEXT PRIMARY KEY,
				last_entry_index INTEGER NOT NULL,
				entries_processed INTEGER NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS reindex_state (
				name TEXT PRIMARY KEY,
				last_page_id_indexed INTEGER NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS error_samples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id INTEGER NOT NULL REFERENCES ingestion_runs(id),
				entry_index INTEGER NOT NULL,
				url TEXT NOT NULL,
				kind TEXT NOT NULL,
				message TEXT NOT NULL
			)`,
		},
	},
	{
		version: 3,
		stmts: []string{
			`CREATE VIRTUAL TABLE IF NOT EXISTS page_fts USING fts5(
				title, plain_text, content='pages', content_rowid='id'
			)`,
		},
	},
}

// migrate applies every migration whose version exceeds the database's
// current schema_version, in order, each inside its own transaction.
// Running it twice is a no-op: already-applied versions are skipped.
func migrate(db *sql.DB, enableFTS bool) error {
	if _, err := db.Exec(migrations[0].stmts[0]); err != nil {
		return err
	}

	current, err := currentVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if m.version == 3 && !enableFTS {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func currentVersion(db *sql.DB) (int, error) {
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
