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

// Package storage is the database writer: schema migration, batched
// clean-replace upserts, checkpoint persistence, the FTS mirror, and the
// reindex/export readers that operate over the same SQLite file.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/pkg/config"
	"github.com/sguzman/zimrs-go/pkg/extract"
)

// Store owns the single write connection to a run's SQLite database.
// Workers never touch it; only the pipeline's writer goroutine does.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	cfg    config.SQLite
}

// PageInput is the page-level content the writer upserts for one record.
type PageInput struct {
	Namespace      string
	URL            string
	MIME           string
	Title          string
	Digest         string
	RawHTML        string
	PlainText      string
	RedirectTarget string
}

// Record is one extracted entry ready to be written, keyed by its archive
// directory index for conservative-watermark tracking.
type Record struct {
	EntryIndex  uint64
	Page        PageInput
	Definitions []extract.Definition
	Relations   []extract.Relation
	Aliases     []extract.Alias
}

// Open opens (creating if absent) the SQLite database at cfg.Path, applies
// schema migrations, and configures runtime PRAGMAs. The connection pool is
// capped at one, matching the single-writer design: SQLite serializes
// writes anyway, so a second connection buys nothing and risks SQLITE_BUSY
// races with the busy_timeout PRAGMA.
func Open(cfg config.SQLite, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, zerrors.NewDatabaseIO("cannot open database", err.Error(), "check the sqlite.path directory is writable", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s", orDefault(cfg.JournalMode, "WAL")),
		fmt.Sprintf("PRAGMA synchronous=%s", orDefault(cfg.Synchronous, "NORMAL")),
		fmt.Sprintf("PRAGMA cache_size=-%d", max(cfg.CacheSizeKiB, 2000)),
		fmt.Sprintf("PRAGMA busy_timeout=%d", max(cfg.BusyTimeoutMS, 1000)),
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, zerrors.NewDatabaseIO("cannot apply database pragmas", err.Error(), "check the SQLite build supports the configured journal_mode/synchronous values", err)
		}
	}

	if err := migrate(db, cfg.EnableFTS); err != nil {
		_ = db.Close()
		return nil, zerrors.NewDatabaseIO("cannot migrate database schema", err.Error(), "back up and remove the database file, or run with a fresh --config sqlite.path", err)
	}

	return &Store{db: db, logger: logger, cfg: cfg}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for read-only callers (export, reindex,
// status reporting) and for test helpers.
func (s *Store) DB() *sql.DB {
	return s.db
}

// BatchOutcome summarizes one WriteBatch call for pipeline metrics/logging.
type BatchOutcome struct {
	PagesWritten       int
	DefinitionsWritten int
	RelationsWritten   int
	AliasesWritten     int
	Quarantined        []QuarantinedRecord
	Dropped            []QuarantinedRecord
}

// QuarantinedRecord names a record that failed to write, for error-sample
// diagnostics.
type QuarantinedRecord struct {
	EntryIndex uint64
	URL        string
	Err        error
}

// WriteBatch writes records inside a single transaction (opened with
// database/sql's plain deferred BEGIN, not BEGIN IMMEDIATE) following the component design's five steps: upsert page, clean-replace
// dependent rows, mirror FTS, advance the checkpoint watermark, commit.
//
// On a constraint failure, the whole batch is rolled back and retried once,
// record-by-record; records that fail twice are dropped and reported in
// BatchOutcome.Dropped. An I/O-level failure aborts the whole batch and is
// returned as a fatal error.
func (s *Store) WriteBatch(ctx context.Context, runID int64, records []Record, watermark int64, checkpointName string) (BatchOutcome, error) {
	outcome, err := s.writeBatchTx(ctx, runID, records, watermark, checkpointName)
	if err == nil {
		return outcome, nil
	}

	if isConstraintError(err) {
		s.logger.Warn("storage.batch.constraint_retry", "batch_size", len(records), "err", err)
		return s.writeRecordsIndividually(ctx, runID, records, watermark, checkpointName)
	}

	return BatchOutcome{}, zerrors.NewDatabaseIO("database write failed", err.Error(), "check disk space and database file integrity", err)
}

func (s *Store) writeBatchTx(ctx context.Context, runID int64, records []Record, watermark int64, checkpointName string) (BatchOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BatchOutcome{}, err
	}
	defer func() { _ = tx.Rollback() }()

	outcome := BatchOutcome{}
	for _, r := range records {
		if err := s.writeOneRecord(ctx, tx, r, &outcome); err != nil {
			return BatchOutcome{}, err
		}
	}

	if err := advanceCheckpoint(ctx, tx, checkpointName, watermark, len(records)); err != nil {
		return BatchOutcome{}, err
	}
	if err := incrementRunCounters(ctx, tx, runID, outcome); err != nil {
		return BatchOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return BatchOutcome{}, err
	}
	return outcome, nil
}

// writeRecordsIndividually retries each record in its own transaction after
// a batch-level constraint failure; a record that fails a second time is
// dropped and counted, per the component design's escalation rule.
func (s *Store) writeRecordsIndividually(ctx context.Context, runID int64, records []Record, watermark int64, checkpointName string) (BatchOutcome, error) {
	final := BatchOutcome{}

	for _, r := range records {
		single, err := s.writeBatchTx(ctx, runID, []Record{r}, watermark, checkpointName)
		if err != nil {
			if isConstraintError(err) {
				constraintErr := zerrors.NewDatabaseConstraint(
					"record dropped after a repeated constraint violation",
					err.Error(),
					"inspect the source entry for a duplicate (namespace, url) pair or a bad foreign key reference",
					err,
				)
				final.Dropped = append(final.Dropped, QuarantinedRecord{EntryIndex: r.EntryIndex, URL: r.Page.URL, Err: constraintErr})
				s.logger.Error("storage.record.dropped", "entry_index", r.EntryIndex, "url", r.Page.URL, "err", constraintErr)
				continue
			}
			return BatchOutcome{}, zerrors.NewDatabaseIO("database write failed", err.Error(), "check disk space and database file integrity", err)
		}
		final.PagesWritten += single.PagesWritten
		final.DefinitionsWritten += single.DefinitionsWritten
		final.RelationsWritten += single.RelationsWritten
		final.AliasesWritten += single.AliasesWritten
	}

	return final, nil
}

func (s *Store) writeOneRecord(ctx context.Context, tx *sql.Tx, r Record, outcome *BatchOutcome) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var pageID int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM pages WHERE namespace = ? AND url = ?`, r.Page.Namespace, r.Page.URL).Scan(&pageID)
	switch {
	case err == sql.ErrNoRows:
		res, insertErr := tx.ExecContext(ctx, `
			INSERT INTO pages (namespace, url, mime, title, digest, raw_html, plain_text, redirect_target, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Page.Namespace, r.Page.URL, r.Page.MIME, r.Page.Title, nullable(r.Page.Digest), nullable(r.Page.RawHTML),
			r.Page.PlainText, nullable(r.Page.RedirectTarget), now, now)
		if insertErr != nil {
			return insertErr
		}
		pageID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, updateErr := tx.ExecContext(ctx, `
			UPDATE pages SET mime = ?, title = ?, digest = ?, raw_html = ?, plain_text = ?, redirect_target = ?, updated_at = ?
			WHERE id = ?`,
			r.Page.MIME, r.Page.Title, nullable(r.Page.Digest), nullable(r.Page.RawHTML), r.Page.PlainText, nullable(r.Page.RedirectTarget), now, pageID); updateErr != nil {
			return updateErr
		}
	}
	outcome.PagesWritten++

	// Clean-replace: drop dependent rows for this page, then re-insert.
	for _, table := range []string{"definitions", "relations", "lemma_aliases"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE page_id = ?", table), pageID); err != nil {
			return err
		}
	}

	for _, d := range r.Definitions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO definitions (page_id, language, part_of_speech, sense_number, sub_sense_path, text, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pageID, d.Language, d.PartOfSpeech, d.SenseNumber, d.SubSensePath, d.Text, d.Confidence); err != nil {
			return err
		}
		outcome.DefinitionsWritten++
	}

	for _, rel := range r.Relations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relations (page_id, language, relation_type, target_lemma, target_language, qualifier)
			VALUES (?, ?, ?, ?, ?, ?)`,
			pageID, rel.Language, string(rel.RelationType), rel.TargetLemma, nullable(rel.TargetLanguage), nullable(rel.Qualifier)); err != nil {
			return err
		}
		outcome.RelationsWritten++
	}

	for _, a := range r.Aliases {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lemma_aliases (page_id, language, alias, alias_kind)
			VALUES (?, ?, ?, ?)`,
			pageID, a.Language, a.Alias, string(a.Kind)); err != nil {
			return err
		}
		outcome.AliasesWritten++
	}

	if s.cfg.EnableFTS {
		if _, err := tx.ExecContext(ctx, `DELETE FROM page_fts WHERE rowid = ?`, pageID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO page_fts(rowid, title, plain_text) VALUES (?, ?, ?)`, pageID, r.Page.Title, r.Page.PlainText); err != nil {
			return err
		}
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isConstraintError reports whether err looks like a SQLite constraint
// violation rather than an I/O failure, by checking the driver's error text
// (modernc.org/sqlite does not export a typed sentinel for this).
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "UNIQUE constraint") || contains(msg, "CHECK constraint") || contains(msg, "FOREIGN KEY constraint")
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// StartRun inserts a new ingestion_runs row and returns its id.
func (s *Store) StartRun(ctx context.Context, configDigest string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (start_at, config_digest) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), configDigest)
	if err != nil {
		return 0, zerrors.NewDatabaseIO("cannot start ingestion run", err.Error(), "check database file permissions", err)
	}
	return res.LastInsertId()
}

// FinishRun marks an ingestion_runs row complete with a final exit status.
func (s *Store) FinishRun(ctx context.Context, runID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_runs SET end_at = ?, exit_status = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), status, runID)
	if err != nil {
		return zerrors.NewDatabaseIO("cannot finalize ingestion run", err.Error(), "check database file permissions", err)
	}
	return nil
}

// RecordErrorSample appends a diagnostic error sample for runID, capped at
// limit rows per run (errors.sample_limit).
func (s *Store) RecordErrorSample(ctx context.Context, runID int64, entryIndex uint64, url, kind, message string, limit int) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM error_samples WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return err
	}
	if count >= limit {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO error_samples (run_id, entry_index, url, kind, message) VALUES (?, ?, ?, ?, ?)`,
		runID, entryIndex, url, kind, message)
	return err
}

func advanceCheckpoint(ctx context.Context, tx *sql.Tx, name string, watermark int64, processedDelta int) error {
	if name == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ingestion_checkpoints (name, last_entry_index, entries_processed, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			last_entry_index = excluded.last_entry_index,
			entries_processed = ingestion_checkpoints.entries_processed + ?,
			updated_at = excluded.updated_at`,
		name, watermark, processedDelta, time.Now().UTC().Format(time.RFC3339Nano), processedDelta)
	return err
}

func incrementRunCounters(ctx context.Context, tx *sql.Tx, runID int64, outcome BatchOutcome) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ingestion_runs SET
			pages_written = pages_written + ?,
			definitions_written = definitions_written + ?,
			relations_written = relations_written + ?
		WHERE id = ?`,
		outcome.PagesWritten, outcome.DefinitionsWritten, outcome.RelationsWritten, runID)
	return err
}

// AddRunCounters adds to the pages_seen/errors_seen diagnostic counters on an
// ingestion_runs row. The pipeline's writer calls this once per flush
// alongside WriteBatch; it runs outside WriteBatch's transaction since these
// are monitoring counts, not data whose consistency with the written rows
// matters.
func (s *Store) AddRunCounters(ctx context.Context, runID int64, seenDelta, failedDelta int) error {
	if seenDelta == 0 && failedDelta == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_runs SET
			pages_seen = pages_seen + ?,
			errors_seen = errors_seen + ?
		WHERE id = ?`,
		seenDelta, failedDelta, runID)
	if err != nil {
		return zerrors.NewDatabaseIO("cannot update run counters", err.Error(), "check database file permissions", err)
	}
	return nil
}
