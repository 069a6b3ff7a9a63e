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

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
)

// RunSummary mirrors one ingestion_runs row for status reporting.
type RunSummary struct {
	ID                 int64  `json:"id"`
	StartAt            string `json:"start_at"`
	EndAt              string `json:"end_at,omitempty"`
	PagesSeen          int64  `json:"pages_seen"`
	PagesWritten       int64  `json:"pages_written"`
	DefinitionsWritten int64  `json:"definitions_written"`
	RelationsWritten   int64  `json:"relations_written"`
	ErrorsSeen         int64  `json:"errors_seen"`
	ConfigDigest       string `json:"config_digest"`
	ExitStatus         string `json:"exit_status,omitempty"`
}

// ErrorSampleRow mirrors one error_samples row for status reporting.
type ErrorSampleRow struct {
	RunID      int64  `json:"run_id"`
	EntryIndex uint64 `json:"entry_index"`
	URL        string `json:"url"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

// RecentRuns returns up to limit ingestion_runs rows, most recent first.
// This is the read side of StartRun/FinishRun/AddRunCounters: the "zimrs
// status" subcommand is the only consumer, but the schema has carried these
// columns since the first migration.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_at, COALESCE(end_at, ''), pages_seen, pages_written,
		       definitions_written, relations_written, errors_seen, config_digest, COALESCE(exit_status, '')
		FROM ingestion_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, zerrors.NewDatabaseIO("cannot read ingestion runs", err.Error(), "check the database file is readable", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartAt, &r.EndAt, &r.PagesSeen, &r.PagesWritten,
			&r.DefinitionsWritten, &r.RelationsWritten, &r.ErrorsSeen, &r.ConfigDigest, &r.ExitStatus); err != nil {
			return nil, zerrors.NewDatabaseIO("cannot scan ingestion run row", err.Error(), "", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, zerrors.NewDatabaseIO("error iterating ingestion runs", err.Error(), "", err)
	}
	return out, nil
}

// ErrorSamples returns up to limit error_samples rows for runID, oldest
// first, for diagnosing why a run reported failures.
func (s *Store) ErrorSamples(ctx context.Context, runID int64, limit int) ([]ErrorSampleRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, entry_index, url, kind, message
		FROM error_samples WHERE run_id = ? ORDER BY id ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, zerrors.NewDatabaseIO("cannot read error samples", err.Error(), "check the database file is readable", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ErrorSampleRow
	for rows.Next() {
		var e ErrorSampleRow
		if err := rows.Scan(&e.RunID, &e.EntryIndex, &e.URL, &e.Kind, &e.Message); err != nil {
			return nil, zerrors.NewDatabaseIO("cannot scan error sample row", err.Error(), "", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, zerrors.NewDatabaseIO("error iterating error samples", err.Error(), "", err)
	}
	return out, nil
}
