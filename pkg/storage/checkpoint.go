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
)

// Watermark is a checkpoint's resume position: the archive directory index
// of the last entry known to be durably written, plus a running count used
// only for progress reporting.
type Watermark struct {
	LastEntryIndex   int64
	EntriesProcessed int64
	Found            bool
}

// LoadCheckpoint reads the named checkpoint's watermark. Found is false when
// the checkpoint has never been advanced, which callers should treat as "no
// resume point, start a fresh pass from the archive's beginning".
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (Watermark, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_entry_index, entries_processed FROM ingestion_checkpoints WHERE name = ?`, name)

	var w Watermark
	err := row.Scan(&w.LastEntryIndex, &w.EntriesProcessed)
	switch {
	case err == sql.ErrNoRows:
		return Watermark{}, nil
	case err != nil:
		return Watermark{}, err
	default:
		w.Found = true
		return w, nil
	}
}

// ResetCheckpoint removes the named checkpoint entirely, used when a run is
// explicitly restarted from scratch rather than resumed.
func (s *Store) ResetCheckpoint(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ingestion_checkpoints WHERE name = ?`, name)
	return err
}
