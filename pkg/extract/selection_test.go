// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"testing"

	"github.com/sguzman/zimrs-go/pkg/archive"
	"github.com/sguzman/zimrs-go/pkg/config"
)

func TestPolicy_DefaultAcceptsArticleHTML(t *testing.T) {
	p := NewPolicy(config.Default().Selection)
	d := p.Evaluate(archive.Entry{Index: 0, Namespace: "A", URL: "A/Dog", MIME: "text/html"})
	if !d.Eligible {
		t.Fatalf("expected eligible, got reason %q", d.Reason)
	}
}

func TestPolicy_RejectsWrongNamespace(t *testing.T) {
	p := NewPolicy(config.Default().Selection)
	d := p.Evaluate(archive.Entry{Index: 0, Namespace: "M", URL: "M/meta", MIME: "text/html"})
	if d.Eligible || d.Reason != RejectNamespace {
		t.Fatalf("got %+v, want namespace rejection", d)
	}
}

func TestPolicy_RejectsWrongMIME(t *testing.T) {
	p := NewPolicy(config.Default().Selection)
	d := p.Evaluate(archive.Entry{Index: 0, Namespace: "A", URL: "A/pic.png", MIME: "image/png"})
	if d.Eligible || d.Reason != RejectMIMEPrefix {
		t.Fatalf("got %+v, want mime rejection", d)
	}
}

func TestPolicy_StartIndex(t *testing.T) {
	cfg := config.Default().Selection
	cfg.StartIndex = 5
	p := NewPolicy(cfg)

	d := p.Evaluate(archive.Entry{Index: 3, Namespace: "A", URL: "A/x", MIME: "text/html"})
	if d.Eligible || d.Reason != RejectBeforeStartIndex {
		t.Fatalf("got %+v, want before-start-index rejection", d)
	}

	d = p.Evaluate(archive.Entry{Index: 5, Namespace: "A", URL: "A/x", MIME: "text/html"})
	if !d.Eligible {
		t.Fatalf("got %+v, want eligible at start index", d)
	}
}

func TestPolicy_ExcludeURLPrefix(t *testing.T) {
	cfg := config.Default().Selection
	cfg.ExcludeURLPrefixes = []string{"A/Talk:"}
	p := NewPolicy(cfg)

	d := p.Evaluate(archive.Entry{Index: 0, Namespace: "A", URL: "A/Talk:Dog", MIME: "text/html"})
	if d.Eligible || d.Reason != RejectExcludedURLPrefix {
		t.Fatalf("got %+v, want excluded-url-prefix rejection", d)
	}
}

func TestPolicy_MaxEntriesStopsIteration(t *testing.T) {
	cfg := config.Default().Selection
	max := 2
	cfg.MaxEntries = &max
	p := NewPolicy(cfg)

	entry := archive.Entry{Namespace: "A", URL: "A/x", MIME: "text/html"}
	for i := uint64(0); i < 2; i++ {
		entry.Index = i
		if d := p.Evaluate(entry); !d.Eligible {
			t.Fatalf("entry %d should be eligible, got %+v", i, d)
		}
	}

	entry.Index = 2
	d := p.Evaluate(entry)
	if d.Eligible || !d.StopIteration {
		t.Fatalf("third entry should reject and stop iteration, got %+v", d)
	}
}
