// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package extract

import "testing"

func TestRegistry_SeededLanguages(t *testing.T) {
	r := NewRegistry(nil)

	got := r.For("English")("Dog")
	if len(got) != 1 || got[0] != "dog" {
		t.Errorf("English normalizer for %q = %v, want [dog]", "Dog", got)
	}

	if got := r.For("English")("dog"); got != nil {
		t.Errorf("English normalizer should emit nothing when already lowercase, got %v", got)
	}
}

func TestRegistry_UnknownLanguageFallsBackToIdentity(t *testing.T) {
	r := NewRegistry(nil)
	if got := r.For("Klingon")("Qapla"); got != nil {
		t.Errorf("unknown language should fall back to identity, got %v", got)
	}
}

func TestRegistry_RequestedOverride(t *testing.T) {
	r := NewRegistry(map[string]string{"German": "case_folding"})
	got := r.For("German")("Hund")
	if len(got) != 1 || got[0] != "hund" {
		t.Errorf("German normalizer = %v, want [hund]", got)
	}
}

func TestStripDiacritics(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"café", "cafe"},
		{"naïve", "naive"},
		{"dog", "dog"},
	}
	for _, tt := range tests {
		if got := StripDiacritics(tt.in); got != tt.want {
			t.Errorf("StripDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
