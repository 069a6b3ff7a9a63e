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

// Package extract turns one Wiktionary archive entry's HTML payload into
// structured definitions, relations, and lemma aliases. It is the heuristic
// heart of the conversion pipeline: there is no general HTML-to-Markdown
// ambition here, only enough structure-awareness to recover Wiktionary's
// conventional heading/list layout.
package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/sguzman/zimrs-go/pkg/config"
)

// Definition is one numbered sense recovered from a language section.
type Definition struct {
	Language     string
	PartOfSpeech string
	SenseNumber  int
	SubSensePath string
	Text         string
	Confidence   float64
}

// RelationType enumerates the kinds of lexical relation the extractor emits.
type RelationType string

const (
	RelationSynonym     RelationType = "synonym"
	RelationAntonym     RelationType = "antonym"
	RelationTranslation RelationType = "translation"
)

// Relation is a typed lexical link from the page to a target lemma string.
type Relation struct {
	Language       string
	RelationType   RelationType
	TargetLemma    string
	TargetLanguage string
	Qualifier      string
}

// AliasKind enumerates how a LemmaAlias was derived.
type AliasKind string

const (
	AliasSurface            AliasKind = "surface"
	AliasLowercase          AliasKind = "lowercase"
	AliasStrippedDiacritics AliasKind = "stripped-diacritics"
	AliasNormalizerEmitted  AliasKind = "normalizer-emitted"
)

// Alias is a normalized search alias for a page's title.
type Alias struct {
	Language string
	Alias    string
	Kind     AliasKind
}

// Result is the structured output of extracting one page's HTML.
type Result struct {
	PlainText         string
	IsRedirect        bool
	RedirectTargetURL string
	Definitions       []Definition
	Relations         []Relation
	Aliases           []Alias
	// UnclassifiedHeadings counts H2 sections whose heading text could not
	// be classified as a language label; see the "drop with error-counter
	// bump" open-question decision.
	UnclassifiedHeadings int
}

// curated part-of-speech subheading labels; extended by
// extraction.extra_part_of_speech_labels.
var defaultPartOfSpeech = map[string]bool{
	"Noun": true, "Verb": true, "Adjective": true, "Adverb": true,
	"Pronoun": true, "Preposition": true, "Conjunction": true,
	"Interjection": true, "Determiner": true, "Article": true,
	"Numeral": true, "Proper noun": true,
}

// Extractor converts page HTML into a Result according to a resolved
// Extraction configuration and a language-normalizer registry.
type Extractor struct {
	cfg          config.Extraction
	normalizers  *Registry
	partOfSpeech map[string]bool
}

// NewExtractor builds an Extractor from the extraction configuration,
// seeding its normalizer registry from cfg.LanguageNormalizers.
func NewExtractor(cfg config.Extraction) *Extractor {
	pos := make(map[string]bool, len(defaultPartOfSpeech)+len(cfg.ExtraPartOfSpeechLabels))
	for k := range defaultPartOfSpeech {
		pos[k] = true
	}
	for _, extra := range cfg.ExtraPartOfSpeechLabels {
		pos[extra] = true
	}

	return &Extractor{
		cfg:          cfg,
		normalizers:  NewRegistry(cfg.LanguageNormalizers),
		partOfSpeech: pos,
	}
}

// Extract parses payload as an HTML document and produces a Result. title is
// the page's title as reported by the archive entry, used for alias emission.
func (e *Extractor) Extract(title string, payload []byte) (*Result, error) {
	doc, err := html.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if target, ok := findRedirectTarget(doc); ok {
		return &Result{IsRedirect: true, RedirectTargetURL: target}, nil
	}

	result := &Result{PlainText: plainText(doc)}

	e.walkSections(doc, title, result)

	return result, nil
}

func (e *Extractor) walkSections(doc *html.Node, title string, result *Result) {
	flat := flattenSignificant(doc)

	var currentLanguage string
	var skipSection bool
	var pendingHeading string
	var firstLanguageSeen string
	senseNumbers := map[string]int{}   // "language|pos" -> next sense number
	languageDefCount := map[string]int{} // language -> definitions kept so far

	for _, n := range flat {
		switch {
		case n.Data == "h2":
			heading := strings.TrimSpace(collectText(n, nil))
			if !isClassifiableLanguage(heading) {
				result.UnclassifiedHeadings++
				skipSection = true
				currentLanguage = ""
				pendingHeading = ""
				continue
			}
			currentLanguage = heading
			pendingHeading = ""
			if firstLanguageSeen == "" {
				firstLanguageSeen = heading
			}
			skipSection = !e.languageAllowed(heading)

		case n.Data == "h3" || n.Data == "h4":
			pendingHeading = strings.TrimSpace(collectText(n, nil))

		case n.Data == "ol" || n.Data == "ul":
			if skipSection || currentLanguage == "" || pendingHeading == "" {
				continue
			}
			heading := pendingHeading
			pendingHeading = ""

			switch {
			case e.partOfSpeech[heading] && n.Data == "ol":
				key := currentLanguage + "|" + heading
				defs := e.extractSenses(n, "", 1, currentLanguage, heading, senseNumbers, languageDefCount, key)
				result.Definitions = append(result.Definitions, defs...)

			case equalsFold(heading, "Synonyms") && e.cfg.EmitSynonyms:
				result.Relations = append(result.Relations, e.extractSimpleRelations(n, currentLanguage, RelationSynonym)...)

			case equalsFold(heading, "Antonyms") && e.cfg.EmitAntonyms:
				result.Relations = append(result.Relations, e.extractSimpleRelations(n, currentLanguage, RelationAntonym)...)

			case equalsFold(heading, "Translations") && e.cfg.EmitTranslations:
				result.Relations = append(result.Relations, e.extractTranslations(n, currentLanguage)...)
			}
		}
	}

	result.Aliases = e.buildAliases(title, firstLanguageSeen)
}

func equalsFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}

// isClassifiableLanguage is a light heuristic: a language heading must be
// ASCII letters, spaces, and hyphens only. Anything else (template leftovers,
// numeric markers, non-ASCII letters) is treated as unclassifiable and dropped.
func isClassifiableLanguage(heading string) bool {
	if heading == "" {
		return false
	}
	for _, r := range heading {
		if r == ' ' || r == '-' {
			continue
		}
		if r < 'A' || (r > 'Z' && r < 'a') || r > 'z' {
			return false
		}
	}
	return true
}

func (e *Extractor) languageAllowed(language string) bool {
	if len(e.cfg.LanguageAllowlist) == 0 {
		return true
	}
	for _, allowed := range e.cfg.LanguageAllowlist {
		if allowed == language {
			return true
		}
	}
	return false
}

// extractSenses recursively walks an <ol>, assigning 1-based sense numbers
// and dotted sub_sense_path strings, honoring max_sense_depth and
// max_definitions_per_language.
func (e *Extractor) extractSenses(ol *html.Node, parentPath string, depth int, language, pos string, senseNumbers, languageDefCount map[string]int, key string) []Definition {
	var defs []Definition
	index := 0

	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		index++
		path := strconv.Itoa(index)
		if parentPath != "" {
			path = parentPath + "." + path
		}

		if e.cfg.MaxDefinitionsPerLanguage > 0 && languageDefCount[language] >= e.cfg.MaxDefinitionsPerLanguage {
			break
		}

		text := strings.TrimSpace(collectText(li, map[string]bool{"ol": true, "ul": true}))
		confidence := confidenceFor(text, depth)

		if confidence >= e.cfg.ConfidenceThreshold {
			senseNumbers[key]++
			languageDefCount[language]++
			defs = append(defs, Definition{
				Language:     language,
				PartOfSpeech: pos,
				SenseNumber:  senseNumbers[key],
				SubSensePath: path,
				Text:         text,
				Confidence:   confidence,
			})
		}

		if depth < e.cfg.MaxSenseDepth {
			for c := li.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "ol" || c.Data == "ul") {
					defs = append(defs, e.extractSenses(c, path, depth+1, language, pos, senseNumbers, languageDefCount, key)...)
				}
			}
		}
	}

	return defs
}

// confidenceFor implements the penalty schedule from the component design,
// floored at 0.
func confidenceFor(text string, depth int) float64 {
	confidence := 1.0

	if len(text) < 8 {
		confidence -= 0.1
	}
	if len(text) > 600 {
		confidence -= 0.1
	}
	if hasUnbalancedBrackets(text) || strings.Contains(text, "{{") || strings.Contains(text, "}}") {
		confidence -= 0.2
	}
	if depth > 2 {
		confidence -= 0.1 * float64(depth-2)
	}

	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

func hasUnbalancedBrackets(s string) bool {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return true
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) != 0
}

// extractSimpleRelations handles Synonyms/Antonyms: list item text split on
// commas and semicolons, each token a relation to the enclosing language.
func (e *Extractor) extractSimpleRelations(list *html.Node, language string, kind RelationType) []Relation {
	var relations []Relation
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		text := collectText(li, map[string]bool{"ol": true, "ul": true})
		for _, token := range splitAny(text, ",", ";") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			relations = append(relations, Relation{
				Language:       language,
				RelationType:   kind,
				TargetLemma:    token,
				TargetLanguage: language,
			})
		}
	}
	return relations
}

// extractTranslations handles Translations: each <li> is "Language: lemma1,
// lemma2"; split on the first colon.
func (e *Extractor) extractTranslations(list *html.Node, sourceLanguage string) []Relation {
	var relations []Relation
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		text := collectText(li, map[string]bool{"ol": true, "ul": true})
		idx := strings.Index(text, ":")
		if idx < 0 {
			continue
		}
		targetLanguage := strings.TrimSpace(text[:idx])
		rest := text[idx+1:]
		for _, token := range strings.Split(rest, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			relations = append(relations, Relation{
				Language:       sourceLanguage,
				RelationType:   RelationTranslation,
				TargetLemma:    token,
				TargetLanguage: targetLanguage,
			})
		}
	}
	return relations
}

func (e *Extractor) buildAliases(title, firstLanguage string) []Alias {
	aliases := []Alias{
		{Language: firstLanguage, Alias: title, Kind: AliasSurface},
	}

	if lower := strings.ToLower(title); lower != title {
		aliases = append(aliases, Alias{Language: firstLanguage, Alias: lower, Kind: AliasLowercase})
	}

	if stripped := StripDiacritics(title); stripped != title {
		aliases = append(aliases, Alias{Language: firstLanguage, Alias: stripped, Kind: AliasStrippedDiacritics})
	}

	if firstLanguage != "" {
		for _, emitted := range e.normalizers.For(firstLanguage)(title) {
			aliases = append(aliases, Alias{Language: firstLanguage, Alias: emitted, Kind: AliasNormalizerEmitted})
		}
	}

	return aliases
}

func splitAny(s string, seps ...string) []string {
	replaced := s
	for _, sep := range seps[1:] {
		replaced = strings.ReplaceAll(replaced, sep, seps[0])
	}
	return strings.Split(replaced, seps[0])
}

// flattenSignificant walks the document in pre-order, returning headings
// (h2/h3/h4) and top-level lists (ol/ul) in document order while flattening
// transparent containers (div, section, body, html, ...). Nested ol/ul
// nodes are not flattened out individually; they remain reachable as
// children of the <li> that contains them, for recursive sense extraction.
func flattenSignificant(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "h2", "h3", "h4", "ol", "ul":
				out = append(out, node)
				return
			case "script", "style":
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// blockElements forces a newline boundary in plainText.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true, "blockquote": true,
}

// plainText strips script/style content, turns block boundaries into
// newlines and inline boundaries into spaces, then collapses whitespace.
func plainText(doc *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if blockElements[n.Data] {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n")
		}
	}
	walk(doc)
	return collapseWhitespace(b.String())
}

// collectText concatenates text nodes under n, skipping any subtree whose
// root tag is present in skip (used to exclude nested lists from a
// <li>'s own sense text).
func collectText(n *html.Node, skip map[string]bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && skip[node.Data] {
			return
		}
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && !blockElements[node.Data] {
			b.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return collapseWhitespace(b.String())
}

// collapseWhitespace collapses runs of whitespace within each line to a
// single space and drops empty lines, preserving the newline boundaries
// plainText inserted between block elements.
func collapseWhitespace(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(trimmed)
	}
	return b.String()
}

// findRedirectTarget detects an archive-internal redirect marker: a link
// carrying a redirect class, or a meta-refresh with a url= target. The
// meta-refresh target is not checked to lie inside the archive.
func findRedirectTarget(doc *html.Node) (string, bool) {
	var target string
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "link", "a":
				if hasClassContaining(n, "redirect") {
					if href, ok := attr(n, "href"); ok {
						target = href
						found = true
						return
					}
				}
			case "meta":
				if equiv, ok := attr(n, "http-equiv"); ok && strings.EqualFold(equiv, "refresh") {
					if content, ok := attr(n, "content"); ok {
						if url, ok := parseRefreshURL(content); ok {
							target = url
							found = true
							return
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return target, found
}

func hasClassContaining(n *html.Node, needle string) bool {
	class, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(class) {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func parseRefreshURL(content string) (string, bool) {
	idx := strings.Index(strings.ToLower(content), "url=")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(content[idx+len("url="):]), true
}
