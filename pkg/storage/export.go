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
	"encoding/json"
	"fmt"
	"io"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
)

// ExportedDefinition mirrors one definitions row for JSON export.
type ExportedDefinition struct {
	Language     string  `json:"language"`
	PartOfSpeech string  `json:"part_of_speech"`
	SenseNumber  int     `json:"sense_number"`
	SubSensePath string  `json:"sub_sense_path"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
}

// ExportedRelation mirrors one relations row for JSON export.
type ExportedRelation struct {
	Language       string `json:"language"`
	RelationType   string `json:"relation_type"`
	TargetLemma    string `json:"target_lemma"`
	TargetLanguage string `json:"target_language,omitempty"`
	Qualifier      string `json:"qualifier,omitempty"`
}

// ExportedAlias mirrors one lemma_aliases row for JSON export.
type ExportedAlias struct {
	Language string `json:"language"`
	Alias    string `json:"alias"`
	Kind     string `json:"alias_kind"`
}

// ExportedPage is one page and all of its dependent rows, the unit streamed
// by Export.
type ExportedPage struct {
	ID             int64                `json:"id"`
	Namespace      string               `json:"namespace"`
	URL            string               `json:"url"`
	Title          string               `json:"title"`
	MIME           string               `json:"mime"`
	RedirectTarget string               `json:"redirect_target,omitempty"`
	Definitions    []ExportedDefinition `json:"definitions"`
	Relations      []ExportedRelation   `json:"relations"`
	Aliases        []ExportedAlias      `json:"aliases"`
}

// Export streams every page, in id order, as a single JSON array to w.
// Dependent rows (definitions, relations, aliases) are loaded per page so
// memory use stays bounded regardless of database size, mirroring how
// WriteBatch never holds more than one batch's rows at a time.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, namespace, url, title, mime, COALESCE(redirect_target, '') FROM pages ORDER BY id ASC`)
	if err != nil {
		return zerrors.NewDatabaseIO("cannot read pages for export", err.Error(), "check the database file is readable", err)
	}
	defer func() { _ = rows.Close() }()

	enc := json.NewEncoder(w)
	if _, err := w.Write([]byte("[\n")); err != nil {
		return err
	}

	first := true
	for rows.Next() {
		var p ExportedPage
		if err := rows.Scan(&p.ID, &p.Namespace, &p.URL, &p.Title, &p.MIME, &p.RedirectTarget); err != nil {
			return zerrors.NewDatabaseIO("cannot scan page row for export", err.Error(), "", err)
		}

		p.Definitions, err = s.definitionsForPage(ctx, p.ID)
		if err != nil {
			return err
		}
		p.Relations, err = s.relationsForPage(ctx, p.ID)
		if err != nil {
			return err
		}
		p.Aliases, err = s.aliasesForPage(ctx, p.ID)
		if err != nil {
			return err
		}

		if !first {
			if _, err := w.Write([]byte(",\n")); err != nil {
				return err
			}
		}
		first = false
		if err := enc.Encode(p); err != nil {
			return zerrors.NewDatabaseIO("cannot encode exported page", err.Error(), "", err)
		}
	}
	if err := rows.Err(); err != nil {
		return zerrors.NewDatabaseIO("error iterating pages for export", err.Error(), "", err)
	}

	if _, err := w.Write([]byte("]\n")); err != nil {
		return err
	}
	return nil
}

func (s *Store) definitionsForPage(ctx context.Context, pageID int64) ([]ExportedDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT language, part_of_speech, sense_number, sub_sense_path, text, confidence
		FROM definitions WHERE page_id = ? ORDER BY language, part_of_speech, sense_number, sub_sense_path`, pageID)
	if err != nil {
		return nil, wrapScanErr("definitions", pageID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ExportedDefinition
	for rows.Next() {
		var d ExportedDefinition
		if err := rows.Scan(&d.Language, &d.PartOfSpeech, &d.SenseNumber, &d.SubSensePath, &d.Text, &d.Confidence); err != nil {
			return nil, wrapScanErr("definitions", pageID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) relationsForPage(ctx context.Context, pageID int64) ([]ExportedRelation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT language, relation_type, target_lemma, COALESCE(target_language, ''), COALESCE(qualifier, '')
		FROM relations WHERE page_id = ? ORDER BY relation_type, language, target_lemma`, pageID)
	if err != nil {
		return nil, wrapScanErr("relations", pageID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ExportedRelation
	for rows.Next() {
		var r ExportedRelation
		if err := rows.Scan(&r.Language, &r.RelationType, &r.TargetLemma, &r.TargetLanguage, &r.Qualifier); err != nil {
			return nil, wrapScanErr("relations", pageID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) aliasesForPage(ctx context.Context, pageID int64) ([]ExportedAlias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT language, alias, alias_kind FROM lemma_aliases WHERE page_id = ? ORDER BY alias_kind, alias`, pageID)
	if err != nil {
		return nil, wrapScanErr("lemma_aliases", pageID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ExportedAlias
	for rows.Next() {
		var a ExportedAlias
		if err := rows.Scan(&a.Language, &a.Alias, &a.Kind); err != nil {
			return nil, wrapScanErr("lemma_aliases", pageID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func wrapScanErr(table string, pageID int64, err error) error {
	if err == sql.ErrNoRows {
		return nil
	}
	return zerrors.NewDatabaseIO(fmt.Sprintf("cannot read %s for page %d", table, pageID), err.Error(), "", err)
}
