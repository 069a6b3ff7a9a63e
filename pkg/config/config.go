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

// Package config loads the TOML document that drives a conversion run into
// a typed, validated Config. Every default named across the component
// design lives here, in one place, rather than scattered across callers.
package config

import (
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
)

// Selection controls which archive entries are eligible for extraction.
type Selection struct {
	MaxEntries          *int     `toml:"max_entries"`
	StartIndex          int      `toml:"start_index"`
	IncludeNamespaces   []string `toml:"include_namespaces"`
	IncludeURLPrefixes  []string `toml:"include_url_prefixes"`
	ExcludeURLPrefixes  []string `toml:"exclude_url_prefixes"`
	IncludeMIMEPrefixes []string `toml:"include_mime_prefixes"`
}

// Extraction controls the HTML extractor's behavior.
type Extraction struct {
	LanguageAllowlist         []string          `toml:"language_allowlist"`
	MaxDefinitionsPerLanguage int               `toml:"max_definitions_per_language"`
	MaxSenseDepth             int               `toml:"max_sense_depth"`
	ConfidenceThreshold       float64           `toml:"confidence_threshold"`
	EmitSynonyms              bool              `toml:"emit_synonyms"`
	EmitAntonyms              bool              `toml:"emit_antonyms"`
	EmitTranslations          bool              `toml:"emit_translations"`
	TaskTimeoutMS             int               `toml:"task_timeout_ms"`
	LanguageNormalizers       map[string]string `toml:"language_normalizers"`
	ExtraPartOfSpeechLabels   []string          `toml:"extra_part_of_speech_labels"`
}

// Workers controls the extraction worker pool's shape.
type Workers struct {
	ExtractionThreads int `toml:"extraction_threads"`
	QueueCapacity     int `toml:"queue_capacity"`
}

// SQLite controls the database writer's connection and batching behavior.
type SQLite struct {
	Path          string `toml:"path"`
	BatchSize     int    `toml:"batch_size"`
	BatchFlushMS  int    `toml:"batch_flush_ms"`
	CacheSizeKiB  int    `toml:"cache_size_kib"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
	JournalMode   string `toml:"journal_mode"`
	Synchronous   string `toml:"synchronous"`
	StoreRawHTML  bool   `toml:"store_raw_html"`
	EnableFTS     bool   `toml:"enable_fts"`
}

// Checkpoint controls resumability.
type Checkpoint struct {
	Enabled           bool   `toml:"enabled"`
	Name              string `toml:"name"`
	FlushEveryEntries int    `toml:"flush_every_entries"`
}

// Reindex controls the standalone reindex command.
type Reindex struct {
	Name      string `toml:"name"`
	BatchSize int    `toml:"batch_size"`
}

// ErrorSamples controls diagnostic error-sample retention (§3 ErrorSample).
type ErrorSamples struct {
	SampleLimit int `toml:"sample_limit"`
}

// Verify controls the verify-zim pre-flight check.
type Verify struct {
	TailBytes     int  `toml:"tail_bytes"`
	SkipChecksum  bool `toml:"skip_checksum"`
}

// Config is the fully-resolved, validated configuration for a run.
type Config struct {
	Selection    Selection    `toml:"selection"`
	Extraction   Extraction   `toml:"extraction"`
	Workers      Workers      `toml:"workers"`
	SQLite       SQLite       `toml:"sqlite"`
	Checkpoint   Checkpoint   `toml:"checkpoint"`
	Reindex      Reindex      `toml:"reindex"`
	Errors       ErrorSamples `toml:"errors"`
	Verify       Verify       `toml:"verify"`
}

// testZIMEnvVar overrides the harness archive path; see spec.md §6.
const testZIMEnvVar = "ZIMRS_TEST_ZIM"

// Load reads and parses the TOML document at path, applies defaults for
// every unset field, validates cross-field constraints, and returns the
// resolved Config. Returns a ConfigInvalid *errors.UserError on any failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerrors.NewConfigInvalid(
			"cannot read configuration file",
			err.Error(),
			"check that the --config path exists and is readable",
			err,
		)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, zerrors.NewConfigInvalid(
			"cannot parse configuration file",
			err.Error(),
			"check the TOML syntax against the documented schema",
			err,
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a Config populated with every default named in the
// component design (§4.1-§4.7), before any TOML document is applied.
func Default() *Config {
	return &Config{
		Selection: Selection{
			IncludeNamespaces:   []string{"A"},
			IncludeMIMEPrefixes: []string{"text/html"},
		},
		Extraction: Extraction{
			MaxDefinitionsPerLanguage: 0,
			MaxSenseDepth:             3,
			ConfidenceThreshold:       0.2,
			EmitSynonyms:              true,
			EmitAntonyms:              true,
			EmitTranslations:          true,
			TaskTimeoutMS:             5000,
		},
		Workers: Workers{
			ExtractionThreads: runtime.NumCPU(),
			QueueCapacity:     16384,
		},
		SQLite: SQLite{
			Path:          "zimrs.sqlite",
			BatchSize:     2000,
			BatchFlushMS:  500,
			CacheSizeKiB:  20000,
			BusyTimeoutMS: 5000,
			JournalMode:   "WAL",
			Synchronous:   "NORMAL",
			StoreRawHTML:  false,
			EnableFTS:     true,
		},
		Checkpoint: Checkpoint{
			Enabled:           true,
			Name:              "default",
			FlushEveryEntries: 2000,
		},
		Reindex: Reindex{
			Name:      "default",
			BatchSize: 5000,
		},
		Errors: ErrorSamples{
			SampleLimit: 50,
		},
		Verify: Verify{
			TailBytes: 4096,
		},
	}
}

// Validate checks cross-field constraints that TOML parsing alone cannot
// enforce. It must run before any I/O against the archive or database.
func (c *Config) Validate() error {
	if c.Workers.ExtractionThreads < 1 {
		return zerrors.NewConfigInvalid(
			"invalid worker configuration",
			"workers.extraction_threads must be >= 1",
			"set workers.extraction_threads to a positive integer",
			nil,
		)
	}
	if c.Workers.QueueCapacity < 1 {
		return zerrors.NewConfigInvalid(
			"invalid worker configuration",
			"workers.queue_capacity must be >= 1",
			"set workers.queue_capacity to a positive integer",
			nil,
		)
	}
	if c.SQLite.BatchSize <= 0 {
		return zerrors.NewConfigInvalid(
			"invalid sqlite configuration",
			"sqlite.batch_size must be > 0",
			"set sqlite.batch_size to a positive integer",
			nil,
		)
	}
	if c.SQLite.Path == "" {
		return zerrors.NewConfigInvalid(
			"invalid sqlite configuration",
			"sqlite.path must not be empty",
			"set sqlite.path to the target database file",
			nil,
		)
	}
	if c.Extraction.ConfidenceThreshold < 0 || c.Extraction.ConfidenceThreshold > 1 {
		return zerrors.NewConfigInvalid(
			"invalid extraction configuration",
			"extraction.confidence_threshold must be in [0,1]",
			"set extraction.confidence_threshold between 0.0 and 1.0",
			nil,
		)
	}
	if c.Extraction.MaxSenseDepth < 1 {
		return zerrors.NewConfigInvalid(
			"invalid extraction configuration",
			"extraction.max_sense_depth must be >= 1",
			"set extraction.max_sense_depth to a positive integer",
			nil,
		)
	}
	if c.Checkpoint.Enabled && c.Checkpoint.Name == "" {
		return zerrors.NewConfigInvalid(
			"invalid checkpoint configuration",
			"checkpoint.name must not be empty when checkpoint.enabled is true",
			"set checkpoint.name to identify this run's resume watermark",
			nil,
		)
	}
	if c.Reindex.BatchSize <= 0 {
		return zerrors.NewConfigInvalid(
			"invalid reindex configuration",
			"reindex.batch_size must be > 0",
			"set reindex.batch_size to a positive integer",
			nil,
		)
	}
	return nil
}

// ArchivePath resolves the archive path for a run, honoring the
// ZIMRS_TEST_ZIM environment override used by the test harness.
func ArchivePath(flagValue string) string {
	if v := os.Getenv(testZIMEnvVar); v != "" {
		return v
	}
	return flagValue
}
