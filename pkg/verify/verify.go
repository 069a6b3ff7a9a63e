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

// Package verify runs the verify-zim pre-flight check: header parse,
// declared-vs-actual size, tail-window zero-fill detection, and the
// archive's internal checksum.
package verify

import (
	"bytes"
	"context"
	"fmt"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/pkg/archive"
	"github.com/sguzman/zimrs-go/pkg/config"
)

// Report is the outcome of a verify-zim run, for CLI summary output.
type Report struct {
	DeclaredSize    uint64
	ActualSize      uint64
	EntryCount      uint64
	UUID            string
	ChecksumOK      bool
	ChecksumSkipped bool
}

// Run checks arc against cfg.Verify, returning a Report on success or an
// ArchiveCorrupt *errors.UserError describing the first failing check.
func Run(ctx context.Context, arc archive.Archive, tailReader TailReader, cfg config.Verify) (*Report, error) {
	header := arc.Header()

	if header.DeclaredSize == 0 {
		return nil, zerrors.NewArchiveCorrupt(
			"archive header is unparseable",
			"declared size is zero",
			"re-download the archive; the header may be truncated",
			nil,
		)
	}

	if header.DeclaredSize > header.ActualSize {
		return nil, zerrors.NewArchiveCorrupt(
			"archive is smaller than its declared size",
			fmt.Sprintf("declared %d bytes, file is %d bytes", header.DeclaredSize, header.ActualSize),
			"re-download the archive; the file looks truncated",
			nil,
		)
	}

	tailBytes := cfg.TailBytes
	if tailBytes <= 0 {
		tailBytes = 4096
	}
	if tailReader != nil {
		tail, err := tailReader.Tail(ctx, tailBytes)
		if err != nil {
			return nil, zerrors.NewArchiveCorrupt(
				"cannot read archive tail window",
				err.Error(),
				"check the archive file is readable and not still being written",
				err,
			)
		}
		if len(tail) > 0 && allZero(tail) {
			return nil, zerrors.NewArchiveCorrupt(
				"archive tail window is entirely zero bytes",
				fmt.Sprintf("last %d bytes are all zero", len(tail)),
				"the download was likely interrupted mid pre-allocation; re-download the archive",
				nil,
			)
		}
	}

	report := &Report{
		DeclaredSize: header.DeclaredSize,
		ActualSize:   header.ActualSize,
		EntryCount:   header.EntryCount,
		UUID:         header.UUID,
	}

	if cfg.SkipChecksum {
		report.ChecksumSkipped = true
		return report, nil
	}

	ok, err := arc.ChecksumOK(ctx)
	if err != nil {
		return nil, zerrors.NewArchiveCorrupt(
			"cannot compute archive checksum",
			err.Error(),
			"re-run with --skip-checksum to bypass, or re-download the archive",
			err,
		)
	}
	if !ok {
		return nil, zerrors.NewArchiveCorrupt(
			"archive checksum does not match",
			"the embedded integrity checksum failed validation",
			"re-download the archive; it may be corrupted",
			nil,
		)
	}
	report.ChecksumOK = true

	return report, nil
}

// TailReader reads the last n bytes of the underlying archive file. It is a
// separate seam from archive.Archive because the tail-window check operates
// on the raw file, not the decoded directory the Archive interface exposes.
type TailReader interface {
	Tail(ctx context.Context, n int) ([]byte, error)
}

func allZero(b []byte) bool {
	return bytes.Count(b, []byte{0}) == len(b)
}
