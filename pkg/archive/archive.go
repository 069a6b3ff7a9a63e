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

// Package archive defines the contract this repository expects from a ZIM
// reader library. The decoder itself is an external collaborator: this
// package only names the shapes the extraction pipeline depends on, so the
// pipeline, worker pool, and writer can be built and tested against
// internal/zimfake before a real decoder is wired in.
package archive

import "context"

// Entry is one addressable directory entry in a ZIM archive.
type Entry struct {
	// Index is the entry's position in stable directory order.
	Index uint64

	// Namespace is the single-letter namespace classifying the entry ('A' = article).
	Namespace string

	// URL is the entry's URL, unique within its namespace.
	URL string

	// Title is the entry's human-readable title.
	Title string

	// MIME is the entry's declared MIME type.
	MIME string

	// IsRedirect reports whether the entry is an archive-internal redirect.
	IsRedirect bool

	// RedirectTargetURL is the target URL when IsRedirect is true.
	RedirectTargetURL string
}

// Archive is a random-access, thread-safe view over a ZIM container.
//
// Implementations must support concurrent calls to EntryAt and Blob from
// multiple goroutines; the reference extraction pipeline never serializes
// access to the archive itself.
type Archive interface {
	// EntryCount returns the total number of directory entries.
	EntryCount() uint64

	// EntryAt returns the entry at the given stable directory index.
	EntryAt(ctx context.Context, index uint64) (Entry, error)

	// Blob returns the (possibly cluster-compressed) payload bytes for an entry.
	Blob(ctx context.Context, index uint64) ([]byte, error)

	// Header returns a human-readable summary of the archive's header fields.
	Header() Header

	// ChecksumOK reports whether the archive's internal integrity checksum,
	// if present, validates. Archives without an embedded checksum report true.
	ChecksumOK(ctx context.Context) (bool, error)

	// Close releases any resources (file handles, mmaps) held by the archive.
	Close() error
}

// Header summarizes the fields verify-zim inspects before trusting an archive.
type Header struct {
	// DeclaredSize is the archive size as recorded in the ZIM header.
	DeclaredSize uint64

	// ActualSize is the size of the underlying file on disk.
	ActualSize uint64

	// EntryCount mirrors Archive.EntryCount for convenience in reports.
	EntryCount uint64

	// UUID is the archive's embedded identifier, if any.
	UUID string
}

// Open opens a ZIM archive at path. This is a thin seam over the external
// decoder; the reference build has no real decoder vendored, so production
// wiring happens in a build-tagged file supplied at deployment time. Tests
// exercise the pipeline through internal/zimfake instead.
var Open func(path string) (Archive, error)
