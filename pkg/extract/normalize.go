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

package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer is a pure, total function mapping a lemma to additional
// search aliases for its language. Normalizers must never fail and must be
// deterministic; unknown languages fall back to Identity.
type Normalizer func(lemma string) []string

// Registry maps a language label to its Normalizer.
type Registry struct {
	byLanguage map[string]Normalizer
}

// NewRegistry builds a Registry seeded with English, French, Spanish,
// Japanese, and Chinese normalizers, then layers in any normalizer names
// requested by extraction.language_normalizers (a language -> normalizer-name
// map; unrecognized names are ignored, so the language keeps its seeded
// normalizer, or Identity through For if it has none).
func NewRegistry(requested map[string]string) *Registry {
	r := &Registry{byLanguage: map[string]Normalizer{
		"English": caseFoldingNormalizer,
		"French":  caseFoldingNormalizer,
		"Spanish": caseFoldingNormalizer,
		"Japanese": identityNormalizer,
		"Chinese":  identityNormalizer,
	}}

	for language, name := range requested {
		if fn, ok := namedNormalizers[name]; ok {
			r.byLanguage[language] = fn
		}
	}

	return r
}

// For returns the Normalizer registered for language, falling back to the
// identity normalizer for unknown languages.
func (r *Registry) For(language string) Normalizer {
	if fn, ok := r.byLanguage[language]; ok {
		return fn
	}
	return identityNormalizer
}

var namedNormalizers = map[string]Normalizer{
	"identity":     identityNormalizer,
	"case_folding": caseFoldingNormalizer,
}

// identityNormalizer emits no additional aliases.
func identityNormalizer(_ string) []string {
	return nil
}

// caseFoldingNormalizer emits a lowercase variant when it differs from the
// input, covering the common "surface vs. lowercase" alias split for
// Latin-script languages.
func caseFoldingNormalizer(lemma string) []string {
	lower := strings.ToLower(lemma)
	if lower == lemma {
		return nil
	}
	return []string{lower}
}

// StripDiacritics returns lemma decomposed to NFD, with combining marks
// dropped, recomposed to NFC. Used directly by the HTML extractor for the
// always-on "stripped-diacritics" alias kind (not a registry normalizer,
// since every language gets this alias regardless of its normalizer).
func StripDiacritics(lemma string) string {
	decomposed := norm.NFD.String(lemma)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
