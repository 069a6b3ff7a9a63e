// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package zimfake is an in-memory stand-in for a real ZIM archive, used only
// by tests. It satisfies pkg/archive.Archive over a fixed slice of entries
// supplied by the caller, so the extraction pipeline, worker pool, and
// writer can be exercised end-to-end without a real ZIM decoder dependency.
package zimfake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sguzman/zimrs-go/pkg/archive"
)

// Page is one fake archive entry plus its raw HTML payload.
type Page struct {
	Namespace         string
	URL               string
	Title             string
	MIME              string
	IsRedirect        bool
	RedirectTargetURL string
	HTML              string
}

// Archive is a thread-safe, read-only fake backed by an in-memory slice.
type Archive struct {
	mu         sync.RWMutex
	pages      []Page
	header     archive.Header
	failEntry  map[uint64]bool
	blobDelays map[uint64]time.Duration
}

var _ archive.Archive = (*Archive)(nil)

// New builds a fake archive from a fixed list of pages. Index order is the
// slice order given here, matching ZIM's "stable directory index" contract.
func New(pages []Page) *Archive {
	return &Archive{
		pages: pages,
		header: archive.Header{
			DeclaredSize: uint64(len(pages)) * 256,
			ActualSize:   uint64(len(pages)) * 256,
			EntryCount:   uint64(len(pages)),
			UUID:         "zimfake-0000",
		},
	}
}

// EntryCount implements archive.Archive.
func (a *Archive) EntryCount() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return uint64(len(a.pages))
}

// FailEntryAt marks index so EntryAt returns an error for it, simulating a
// damaged directory entry.
func (a *Archive) FailEntryAt(index uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failEntry == nil {
		a.failEntry = make(map[uint64]bool)
	}
	a.failEntry[index] = true
}

// DelayBlob makes Blob block unconditionally for d before returning index's
// payload, simulating a pathologically slow or hung read for timeout
// testing. The delay ignores context cancellation by design.
func (a *Archive) DelayBlob(index uint64, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.blobDelays == nil {
		a.blobDelays = make(map[uint64]time.Duration)
	}
	a.blobDelays[index] = d
}

// EntryAt implements archive.Archive.
func (a *Archive) EntryAt(_ context.Context, index uint64) (archive.Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if index >= uint64(len(a.pages)) {
		return archive.Entry{}, fmt.Errorf("zimfake: index %d out of range (%d entries)", index, len(a.pages))
	}
	if a.failEntry[index] {
		return archive.Entry{}, fmt.Errorf("zimfake: simulated read failure at index %d", index)
	}

	p := a.pages[index]
	return archive.Entry{
		Index:             index,
		Namespace:         p.Namespace,
		URL:               p.URL,
		Title:             p.Title,
		MIME:              p.MIME,
		IsRedirect:        p.IsRedirect,
		RedirectTargetURL: p.RedirectTargetURL,
	}, nil
}

// Blob implements archive.Archive. A configured delay blocks unconditionally
// rather than honoring ctx, simulating a hung read that only the caller's
// own timeout enforcement (not cooperative cancellation) can cut short.
func (a *Archive) Blob(_ context.Context, index uint64) ([]byte, error) {
	a.mu.RLock()
	if index >= uint64(len(a.pages)) {
		a.mu.RUnlock()
		return nil, fmt.Errorf("zimfake: index %d out of range (%d entries)", index, len(a.pages))
	}
	delay := a.blobDelays[index]
	payload := []byte(a.pages[index].HTML)
	a.mu.RUnlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return payload, nil
}

// Header implements archive.Archive.
func (a *Archive) Header() archive.Header {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.header
}

// ChecksumOK implements archive.Archive. The fake has no embedded checksum.
func (a *Archive) ChecksumOK(_ context.Context) (bool, error) {
	return true, nil
}

// Close implements archive.Archive.
func (a *Archive) Close() error {
	return nil
}

// CorruptTail marks the header so verify-zim's declared-vs-actual size check
// fails, by shrinking the reported actual size below the declared size.
func (a *Archive) CorruptTail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.header.ActualSize > 0 {
		a.header.ActualSize--
	}
	a.header.DeclaredSize = a.header.ActualSize + 1024
}
