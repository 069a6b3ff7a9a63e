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

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
)

// ReindexProgress reports one batch of Reindex's work, for CLI progress
// bars and structured logging.
type ReindexProgress struct {
	LastPageID  int64
	RowsIndexed int
}

// Reindex rebuilds page_fts from the pages table, starting after the named
// reindex watermark and advancing it every batchSize rows. It is safe to
// interrupt and re-run: progress is durable as of the last committed batch.
func (s *Store) Reindex(ctx context.Context, name string, batchSize int, logger *slog.Logger, onProgress func(ReindexProgress)) error {
	if logger == nil {
		logger = slog.Default()
	}
	if !s.cfg.EnableFTS {
		return zerrors.NewConfigInvalid("reindex requires sqlite.enable_fts", "enable_fts is false", "set sqlite.enable_fts = true and re-run", nil)
	}

	watermark, err := s.reindexWatermark(ctx, name)
	if err != nil {
		return zerrors.NewDatabaseIO("cannot read reindex watermark", err.Error(), "check database file permissions", err)
	}

	logger.Info("reindex.start", "name", name, "from_page_id", watermark, "batch_size", batchSize)

	for {
		advanced, rows, err := s.reindexBatch(ctx, name, watermark, batchSize)
		if err != nil {
			return zerrors.NewDatabaseIO("reindex batch failed", err.Error(), "re-run reindex; progress resumes from the last committed batch", err)
		}
		if rows == 0 {
			break
		}
		watermark = advanced
		if onProgress != nil {
			onProgress(ReindexProgress{LastPageID: watermark, RowsIndexed: rows})
		}
		logger.Debug("reindex.batch.commit", "name", name, "last_page_id", watermark, "rows", rows)
	}

	logger.Info("reindex.complete", "name", name, "last_page_id", watermark)
	return nil
}

func (s *Store) reindexWatermark(ctx context.Context, name string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT last_page_id_indexed FROM reindex_state WHERE name = ?`, name)
	var v int64
	err := row.Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

func (s *Store) reindexBatch(ctx context.Context, name string, afterPageID int64, batchSize int) (int64, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, title, plain_text FROM pages WHERE id > ? ORDER BY id ASC LIMIT ?`, afterPageID, batchSize)
	if err != nil {
		return 0, 0, err
	}

	type page struct {
		id               int64
		title, plainText string
	}
	var batch []page
	for rows.Next() {
		var p page
		if err := rows.Scan(&p.id, &p.title, &p.plainText); err != nil {
			_ = rows.Close()
			return 0, 0, err
		}
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	_ = rows.Close()

	if len(batch) == 0 {
		return afterPageID, 0, nil
	}

	lastID := afterPageID
	for _, p := range batch {
		if _, err := tx.ExecContext(ctx, `DELETE FROM page_fts WHERE rowid = ?`, p.id); err != nil {
			return 0, 0, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO page_fts(rowid, title, plain_text) VALUES (?, ?, ?)`, p.id, p.title, p.plainText); err != nil {
			return 0, 0, err
		}
		lastID = p.id
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reindex_state (name, last_page_id_indexed, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET last_page_id_indexed = excluded.last_page_id_indexed, updated_at = excluded.updated_at`,
		name, lastID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return lastID, len(batch), nil
}
