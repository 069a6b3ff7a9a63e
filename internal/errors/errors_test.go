// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

// TestUserError_Error verifies the Error() method implementation.
func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{
			name: "with underlying error",
			err: &UserError{
				Message: "cannot open database",
				Err:     fmt.Errorf("file locked"),
			},
			want: "cannot open database: file locked",
		},
		{
			name: "without underlying error",
			err: &UserError{
				Message: "invalid config",
				Err:     nil,
			},
			want: "invalid config",
		},
		{
			name: "empty message with underlying error",
			err: &UserError{
				Message: "",
				Err:     fmt.Errorf("some error"),
			},
			want: ": some error",
		},
		{
			name: "empty message without underlying error",
			err: &UserError{
				Message: "",
				Err:     nil,
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("UserError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestUserError_Unwrap verifies errors.Is/errors.As work through UserError.
func TestUserError_Unwrap(t *testing.T) {
	sentinel := fmt.Errorf("sentinel failure")
	wrapped := NewDatabaseIO("write failed", "disk full", "free up space", sentinel)

	if !errors.Is(wrapped, sentinel) {
		t.Errorf("errors.Is() should find the wrapped sentinel error")
	}

	var ue *UserError
	if !errors.As(wrapped, &ue) {
		t.Fatalf("errors.As() should find the *UserError")
	}
	if ue.ExitCode != ExitDatabase {
		t.Errorf("ExitCode = %d, want %d", ue.ExitCode, ExitDatabase)
	}
}

// TestExitCodes verifies the exit code constants match the CLI contract.
func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitUnexpected", ExitUnexpected, 1},
		{"ExitConfig", ExitConfig, 2},
		{"ExitVerify", ExitVerify, 3},
		{"ExitDatabase", ExitDatabase, 4},
		{"ExitInterrupted", ExitInterrupted, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}

// TestExitCodes_Uniqueness ensures no two exit codes collide.
func TestExitCodes_Uniqueness(t *testing.T) {
	codes := []int{ExitSuccess, ExitUnexpected, ExitConfig, ExitVerify, ExitDatabase, ExitInterrupted}
	seen := make(map[int]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate exit code: %d", c)
		}
		seen[c] = true
	}
}

// TestConstructors verifies each constructor sets the expected exit code and fields.
func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("underlying")

	tests := []struct {
		name     string
		err      *UserError
		wantCode int
	}{
		{"NewConfigInvalid", NewConfigInvalid("bad config", "missing field", "add the field", cause), ExitConfig},
		{"NewArchiveOpen", NewArchiveOpen("cannot open archive", "file not found", "check the path", cause), ExitVerify},
		{"NewArchiveCorrupt", NewArchiveCorrupt("archive corrupt", "checksum mismatch", "re-download the archive", cause), ExitVerify},
		{"NewDatabaseIO", NewDatabaseIO("write failed", "disk full", "free up space", cause), ExitDatabase},
		{"NewUnexpected", NewUnexpected("unexpected failure", "unknown", "report a bug", cause), ExitUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.ExitCode != tt.wantCode {
				t.Errorf("%s ExitCode = %d, want %d", tt.name, tt.err.ExitCode, tt.wantCode)
			}
			if tt.err.Err != cause {
				t.Errorf("%s Err not preserved", tt.name)
			}
		})
	}

	interrupted := NewInterrupted("stopped by signal")
	if interrupted.ExitCode != ExitInterrupted {
		t.Errorf("NewInterrupted ExitCode = %d, want %d", interrupted.ExitCode, ExitInterrupted)
	}
	if interrupted.Fix == "" {
		t.Errorf("NewInterrupted should suggest resuming from checkpoint")
	}
}

// TestErrorChain verifies UserError participates correctly in wrapped chains.
func TestErrorChain(t *testing.T) {
	root := fmt.Errorf("root cause")
	ue := NewArchiveCorrupt("archive rejected", "tail bytes nonzero", "re-download", root)
	wrapped := fmt.Errorf("verify-zim failed: %w", ue)

	var got *UserError
	if !errors.As(wrapped, &got) {
		t.Fatalf("errors.As should unwrap to *UserError")
	}
	if got.ExitCode != ExitVerify {
		t.Errorf("ExitCode = %d, want %d", got.ExitCode, ExitVerify)
	}
	if !errors.Is(wrapped, root) {
		t.Errorf("errors.Is should find the root cause")
	}
}

// TestUserError_AllFields verifies all fields are independently addressable.
func TestUserError_AllFields(t *testing.T) {
	ue := &UserError{
		Message:  "msg",
		Cause:    "cause",
		Fix:      "fix",
		ExitCode: ExitConfig,
		Err:      fmt.Errorf("err"),
	}

	if ue.Message != "msg" || ue.Cause != "cause" || ue.Fix != "fix" || ue.ExitCode != ExitConfig {
		t.Errorf("fields not preserved: %+v", ue)
	}
}

// TestUserError_Format verifies formatted output contains each populated section.
func TestUserError_Format(t *testing.T) {
	ue := NewConfigInvalid("bad config", "missing workers.extraction_threads", "set it to a positive integer", nil)
	out := ue.Format(true)

	if !strings.Contains(out, "bad config") {
		t.Errorf("Format() missing message: %q", out)
	}
	if !strings.Contains(out, "missing workers.extraction_threads") {
		t.Errorf("Format() missing cause: %q", out)
	}
	if !strings.Contains(out, "set it to a positive integer") {
		t.Errorf("Format() missing fix: %q", out)
	}
}

// TestUserError_Format_NoColor verifies NO_COLOR suppresses ANSI sequences.
func TestUserError_Format_NoColor(t *testing.T) {
	old := os.Getenv("NO_COLOR")
	defer os.Setenv("NO_COLOR", old)
	os.Setenv("NO_COLOR", "1")

	ue := NewDatabaseIO("write failed", "disk full", "free space", nil)
	out := ue.Format(false)

	if strings.Contains(out, "\x1b[") {
		t.Errorf("Format() should not contain ANSI codes when NO_COLOR is set: %q", out)
	}
}

// TestUserError_ToJSON verifies the JSON projection carries every field.
func TestUserError_ToJSON(t *testing.T) {
	ue := NewArchiveOpen("cannot open archive", "permission denied", "check file permissions", fmt.Errorf("open: permission denied"))
	j := ue.ToJSON()

	if j.Error != ue.Message {
		t.Errorf("ToJSON().Error = %q, want %q", j.Error, ue.Message)
	}
	if j.Cause != ue.Cause {
		t.Errorf("ToJSON().Cause = %q, want %q", j.Cause, ue.Cause)
	}
	if j.Fix != ue.Fix {
		t.Errorf("ToJSON().Fix = %q, want %q", j.Fix, ue.Fix)
	}
	if j.ExitCode != ue.ExitCode {
		t.Errorf("ToJSON().ExitCode = %d, want %d", j.ExitCode, ue.ExitCode)
	}
}

// TestExitCode verifies the ExitCode() helper unwraps taxonomy errors and
// falls back to ExitUnexpected for everything else.
func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != ExitSuccess {
		t.Errorf("ExitCode(nil) = %d, want %d", got, ExitSuccess)
	}

	plain := fmt.Errorf("plain error")
	if got := ExitCode(plain); got != ExitUnexpected {
		t.Errorf("ExitCode(plain) = %d, want %d", got, ExitUnexpected)
	}

	tagged := NewArchiveCorrupt("bad archive", "tail nonzero", "redownload", nil)
	if got := ExitCode(tagged); got != ExitVerify {
		t.Errorf("ExitCode(tagged) = %d, want %d", got, ExitVerify)
	}

	wrapped := fmt.Errorf("context: %w", tagged)
	if got := ExitCode(wrapped); got != ExitVerify {
		t.Errorf("ExitCode(wrapped) = %d, want %d", got, ExitVerify)
	}
}
