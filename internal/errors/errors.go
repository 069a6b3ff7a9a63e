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

// Package errors provides structured error handling for the zimrs CLI.
//
// UserError carries what went wrong, why, and how to fix it, plus the exit
// code the CLI should use. Each kind from the pipeline's error taxonomy
// (ConfigInvalid, ArchiveOpen, ArchiveCorrupt, EntryRead, ExtractionTimeout,
// ExtractionParse, DatabaseConstraint, DatabaseIO, Cancelled) has a matching
// constructor so callers never have to remember exit codes by hand.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes, fixed by the convert/verify-zim/reindex CLI contract.
const (
	// ExitSuccess indicates a completed run.
	ExitSuccess = 0

	// ExitUnexpected indicates an unanticipated, non-taxonomy failure.
	ExitUnexpected = 1

	// ExitConfig indicates an invalid or unparsable configuration document.
	ExitConfig = 2

	// ExitVerify indicates verify-zim rejected the archive.
	ExitVerify = 3

	// ExitDatabase indicates a fatal database error (I/O, corruption).
	ExitDatabase = 4

	// ExitInterrupted indicates a graceful shutdown with a checkpoint saved.
	ExitInterrupted = 5
)

// UserError represents an error with structured context for end users.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred.
	Cause string

	// Fix suggests how to resolve it.
	Fix string

	// ExitCode is the process exit code this error should produce.
	ExitCode int

	// Err is the wrapped underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error for errors.Is/errors.As.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigInvalid builds a ConfigInvalid error (exit 2). Fails before any I/O.
func NewConfigInvalid(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewArchiveOpen builds an ArchiveOpen error (exit 3). Fatal: the archive
// could not be opened at all.
func NewArchiveOpen(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitVerify, Err: err}
}

// NewArchiveCorrupt builds an ArchiveCorrupt error (exit 3).
func NewArchiveCorrupt(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitVerify, Err: err}
}

// NewEntryRead builds an EntryRead error: per-task, the entry is quarantined
// and dispatch continues past it.
func NewEntryRead(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitUnexpected, Err: err}
}

// NewExtractionTimeout builds an ExtractionTimeout error: per-task, the
// entry is quarantined when its extraction exceeds extraction.task_timeout_ms.
func NewExtractionTimeout(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitUnexpected, Err: err}
}

// NewExtractionParse builds an ExtractionParse error: per-task, downgraded
// to an empty result with a warning rather than quarantined.
func NewExtractionParse(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitUnexpected, Err: err}
}

// NewDatabaseConstraint builds a DatabaseConstraint error: per-batch, the
// writer retries the batch record-by-record and drops whichever record
// still fails.
func NewDatabaseConstraint(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitDatabase, Err: err}
}

// NewDatabaseIO builds a fatal DatabaseIO error (exit 4).
func NewDatabaseIO(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitDatabase, Err: err}
}

// NewInterrupted builds a graceful-shutdown error (exit 5). The checkpoint
// has already been flushed by the time this is returned.
func NewInterrupted(msg string) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    "the run was interrupted by SIGINT/SIGTERM",
		Fix:      "re-run the same command to resume from the last checkpoint",
		ExitCode: ExitInterrupted,
	}
}

// NewUnexpected builds an unanticipated-failure error (exit 1).
func NewUnexpected(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitUnexpected, Err: err}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the JSON-serializable projection of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError into its JSON projection.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints the error and exits with its exit code. It returns only
// when err is nil.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitUnexpected)
}

// ExitCode extracts the exit code an error should produce, defaulting to
// ExitUnexpected for errors outside the taxonomy.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if ue, ok := asUserError(err); ok {
		return ue.ExitCode
	}
	return ExitUnexpected
}

func asUserError(err error) (*UserError, bool) {
	for err != nil {
		if ue, ok := err.(*UserError); ok {
			return ue, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
