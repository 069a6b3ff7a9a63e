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

	"github.com/sguzman/zimrs-go/pkg/archive"
	"github.com/sguzman/zimrs-go/pkg/config"
)

// RejectReason names why an entry was rejected by the selection policy,
// used for telemetry counters.
type RejectReason string

const (
	RejectNone               RejectReason = ""
	RejectBeforeStartIndex   RejectReason = "before_start_index"
	RejectNamespace          RejectReason = "namespace"
	RejectExcludedURLPrefix  RejectReason = "excluded_url_prefix"
	RejectURLPrefix          RejectReason = "url_prefix"
	RejectMIMEPrefix         RejectReason = "mime_prefix"
	RejectMaxEntriesReached  RejectReason = "max_entries_reached"
)

// Decision is the selection policy's verdict for one directory entry.
type Decision struct {
	Eligible bool
	Reason   RejectReason
	// StopIteration signals the driver that no further entries should be
	// considered, because selection.max_entries has been reached.
	StopIteration bool
}

// Policy evaluates directory entries against a Config's selection rules,
// applied in the fixed order documented in the component design.
type Policy struct {
	cfg     config.Selection
	accepts int
}

// NewPolicy builds a Policy bound to the given selection configuration.
func NewPolicy(cfg config.Selection) *Policy {
	return &Policy{cfg: cfg}
}

// Evaluate decides whether entry is eligible, recording its acceptance
// against the running accepted-count used by the max_entries rule.
func (p *Policy) Evaluate(entry archive.Entry) Decision {
	if p.cfg.StartIndex > 0 && entry.Index < uint64(p.cfg.StartIndex) {
		return Decision{Reason: RejectBeforeStartIndex}
	}

	if len(p.cfg.IncludeNamespaces) > 0 && !contains(p.cfg.IncludeNamespaces, entry.Namespace) {
		return Decision{Reason: RejectNamespace}
	}

	for _, prefix := range p.cfg.ExcludeURLPrefixes {
		if strings.HasPrefix(entry.URL, prefix) {
			return Decision{Reason: RejectExcludedURLPrefix}
		}
	}

	if len(p.cfg.IncludeURLPrefixes) > 0 && !hasAnyPrefix(entry.URL, p.cfg.IncludeURLPrefixes) {
		return Decision{Reason: RejectURLPrefix}
	}

	if len(p.cfg.IncludeMIMEPrefixes) > 0 && !hasAnyPrefix(entry.MIME, p.cfg.IncludeMIMEPrefixes) {
		return Decision{Reason: RejectMIMEPrefix}
	}

	if p.cfg.MaxEntries != nil && p.accepts >= *p.cfg.MaxEntries {
		return Decision{Reason: RejectMaxEntriesReached, StopIteration: true}
	}

	p.accepts++
	return Decision{Eligible: true}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
